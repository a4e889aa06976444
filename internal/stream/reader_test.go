package stream

import (
	"context"
	"errors"
	"io"
	"reflect"
	"strings"
	"testing"
)

// chunkedReader yields its parts one Read call at a time, mimicking a body
// that arrives in arbitrary network-sized pieces.
type chunkedReader struct {
	parts []string
	err   error
}

func (r *chunkedReader) Read(p []byte) (int, error) {
	if len(r.parts) == 0 {
		if r.err != nil {
			return 0, r.err
		}
		return 0, io.EOF
	}
	part := r.parts[0]
	r.parts = r.parts[1:]
	n := copy(p, part)
	if n < len(part) {
		r.parts = append([]string{part[n:]}, r.parts...)
	}
	return n, nil
}

func TestReadDeliversDeltasInOrder(t *testing.T) {
	body := &chunkedReader{parts: []string{
		"data: {\"choices\":[{\"delta\":{\"content\":\"I \"}}]}\n",
		"data: {\"choices\":[{\"delta\":{\"content\":\"hear \"}}]}\ndata: {\"choi",
		"ces\":[{\"delta\":{\"content\":\"you\"}}]}\n",
		"data: [DONE]\n",
	}}

	var got []string
	if err := Read(context.Background(), body, func(delta string) {
		got = append(got, delta)
	}); err != nil {
		t.Fatalf("Read err: %v", err)
	}

	want := []string{"I ", "hear ", "you"}
	if !reflect.DeepEqual(got, want) {
		t.Fatalf("unexpected deltas: got %v want %v", got, want)
	}
}

func TestReadNilBody(t *testing.T) {
	if err := Read(context.Background(), nil, func(string) {
		t.Fatal("callback must not fire for nil body")
	}); err != nil {
		t.Fatalf("Read err: %v", err)
	}
}

func TestReadStopsAtSentinel(t *testing.T) {
	body := &chunkedReader{parts: []string{
		"data: {\"choices\":[{\"delta\":{\"content\":\"hi\"}}]}\ndata: [DONE]\n",
		"data: {\"choices\":[{\"delta\":{\"content\":\"never\"}}]}\n",
	}}

	var got []string
	if err := Read(context.Background(), body, func(delta string) {
		got = append(got, delta)
	}); err != nil {
		t.Fatalf("Read err: %v", err)
	}
	if !reflect.DeepEqual(got, []string{"hi"}) {
		t.Fatalf("unexpected deltas: %v", got)
	}
}

func TestReadEndsCleanlyOnEOF(t *testing.T) {
	body := strings.NewReader("data: {\"choices\":[{\"delta\":{\"content\":\"done\"}}]}\n")

	var got []string
	if err := Read(context.Background(), body, func(delta string) {
		got = append(got, delta)
	}); err != nil {
		t.Fatalf("Read err: %v", err)
	}
	if !reflect.DeepEqual(got, []string{"done"}) {
		t.Fatalf("unexpected deltas: %v", got)
	}
}

func TestReadPropagatesTransportError(t *testing.T) {
	transportErr := errors.New("connection reset")
	body := &chunkedReader{
		parts: []string{"data: {\"choices\":[{\"delta\":{\"content\":\"partial\"}}]}\n"},
		err:   transportErr,
	}

	var got []string
	err := Read(context.Background(), body, func(delta string) {
		got = append(got, delta)
	})
	if !errors.Is(err, transportErr) {
		t.Fatalf("expected transport error, got %v", err)
	}
	if !reflect.DeepEqual(got, []string{"partial"}) {
		t.Fatalf("deltas before failure should still deliver, got %v", got)
	}
}

func TestReadHonorsContextCancellation(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	body := strings.NewReader("data: [DONE]\n")
	if err := Read(ctx, body, func(string) {}); !errors.Is(err, context.Canceled) {
		t.Fatalf("expected context.Canceled, got %v", err)
	}
}
