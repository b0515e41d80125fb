package channel

import (
	"errors"
	"io"
	"net"
	"sync"
	"testing"
	"time"

	"github.com/emmt/xen/pkg/evaluator"
	"github.com/emmt/xen/pkg/protocol"
)

func pipePair() (net.Conn, net.Conn) {
	return net.Pipe()
}

func TestSendCommandIncrementsSerial(t *testing.T) {
	a, b := pipePair()
	defer b.Close()
	// net.Pipe has no buffering: drain the peer end so each write completes.
	go io.Copy(io.Discard, b)
	ch := New(a)
	defer ch.Close()

	for i, want := range []uint64{1, 2, 3} {
		got, err := ch.SendCommand("noop")
		if err != nil {
			t.Fatalf("SendCommand #%d: %v", i, err)
		}
		if got != want {
			t.Errorf("SendCommand #%d: serial = %d, want %d", i, got, want)
		}
	}
}

func TestSendEventSharesCounterWithSendCommand(t *testing.T) {
	a, b := pipePair()
	defer b.Close()
	// net.Pipe has no buffering: drain the peer end so each write completes.
	go io.Copy(io.Discard, b)
	ch := New(a)
	defer ch.Close()

	s1, _ := ch.SendCommand("x")
	s2, _ := ch.SendEvent("y")
	s3, _ := ch.SendCommand("z")
	if s1 != 1 || s2 != 2 || s3 != 3 {
		t.Errorf("serials = %d, %d, %d; want 1, 2, 3", s1, s2, s3)
	}
}

func TestDispatchPreservesArrivalOrder(t *testing.T) {
	a, b := pipePair()
	defer a.Close()

	var mu sync.Mutex
	var got []string
	done := make(chan struct{})

	server := New(b, WithDispatcher(func(ch *Channel, msg *protocol.Message) {
		mu.Lock()
		got = append(got, msg.Text)
		n := len(got)
		mu.Unlock()
		if n == 3 {
			close(done)
		}
	}))
	defer server.Close()

	client := New(a)
	defer client.Close()

	for _, text := range []string{"first", "second", "third"} {
		if _, err := client.SendEvent(text); err != nil {
			t.Fatalf("SendEvent(%q): %v", text, err)
		}
	}

	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for dispatch")
	}

	mu.Lock()
	defer mu.Unlock()
	want := []string{"first", "second", "third"}
	if len(got) != len(want) {
		t.Fatalf("got %v, want %v", got, want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("event %d = %q, want %q", i, got[i], want[i])
		}
	}
}

func TestHandleCommandWithEvaluator(t *testing.T) {
	a, b := pipePair()
	defer a.Close()

	server := New(b, WithEvaluator(evaluator.Arith{}))
	defer server.Close()

	results := make(chan string, 1)
	client := New(a, WithResponseHandler(func(ok bool, serial uint64, text string) {
		if ok {
			results <- text
		} else {
			results <- "ERR:" + text
		}
	}))
	defer client.Close()

	if _, err := client.SendCommand("2 * (3 + 4)"); err != nil {
		t.Fatalf("SendCommand: %v", err)
	}

	select {
	case got := <-results:
		if got != "14" {
			t.Errorf("result = %q, want %q", got, "14")
		}
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for result")
	}
}

func TestHandleCommandWithoutEvaluatorRepliesErr(t *testing.T) {
	a, b := pipePair()
	defer a.Close()

	server := New(b)
	defer server.Close()

	results := make(chan bool, 1)
	client := New(a, WithResponseHandler(func(ok bool, serial uint64, text string) {
		results <- ok
	}))
	defer client.Close()

	if _, err := client.SendCommand("anything"); err != nil {
		t.Fatalf("SendCommand: %v", err)
	}

	select {
	case ok := <-results:
		if ok {
			t.Error("expected an ERR response, got OK")
		}
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for response")
	}
}

func TestCloseIsIdempotent(t *testing.T) {
	a, b := pipePair()
	defer b.Close()
	ch := New(a)

	if err := ch.Close(); err != nil {
		t.Fatalf("first Close: %v", err)
	}
	if err := ch.Close(); err != nil {
		t.Fatalf("second Close: %v", err)
	}
}

func TestSendAfterCloseReturnsErrClosed(t *testing.T) {
	a, b := pipePair()
	defer b.Close()
	ch := New(a)
	ch.Close()

	if _, err := ch.SendCommand("x"); !errors.Is(err, protocol.ErrClosed) {
		t.Errorf("SendCommand after close: err = %v, want ErrClosed", err)
	}
}

func TestCloseFromWithinDispatcherDoesNotDeadlock(t *testing.T) {
	a, b := pipePair()
	defer a.Close()

	closed := make(chan error, 1)
	server := New(b, WithDispatcher(func(ch *Channel, msg *protocol.Message) {
		closed <- ch.Close()
	}))
	defer server.Close()

	client := New(a)
	defer client.Close()

	if _, err := client.SendEvent("shutdown"); err != nil {
		t.Fatalf("SendEvent: %v", err)
	}

	select {
	case err := <-closed:
		if err != nil {
			t.Errorf("Close from within dispatcher: %v", err)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("Close called from within a Dispatcher callback did not return")
	}
}

func TestPeerCloseUnblocksWait(t *testing.T) {
	a, b := pipePair()
	ch := New(a)

	b.Close()

	done := make(chan struct{})
	go func() {
		ch.Wait()
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("Wait did not return after peer closed")
	}
}
