package safego

import (
	"testing"
	"time"
)

func TestGo_RunsFunction(t *testing.T) {
	done := make(chan struct{})

	Go("test work", func() { close(done) })

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("background function never ran")
	}
}

func TestGo_RecoversPanic(t *testing.T) {
	entered := make(chan struct{})

	Go("panicking work", func() {
		close(entered)
		panic("audit sink exploded")
	})

	select {
	case <-entered:
	case <-time.After(time.Second):
		t.Fatal("background function never ran")
	}

	// The panic must not escape the goroutine; give the recover a moment and
	// then prove the test process is still alive by launching another task.
	time.Sleep(50 * time.Millisecond)
	done := make(chan struct{})
	Go("follow-up work", func() { close(done) })
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("launcher unusable after recovered panic")
	}
}
