package history

import (
	"fmt"
	"sync"
	"testing"

	"chat-relay/internal/llm"
)

func TestHistoryAppendGetReset(t *testing.T) {
	h := NewManager()
	userA := int64(1)
	userB := int64(2)

	h.AppendUser(userA, "hello")
	h.AppendAssistant(userA, "hi")
	h.AppendUser(userB, "foo")
	h.AppendAssistant(userB, "bar")

	msgsA := h.Get(userA)
	msgsB := h.Get(userB)

	if len(msgsA) != 2 || len(msgsB) != 2 {
		t.Fatalf("unexpected lengths: A=%d B=%d", len(msgsA), len(msgsB))
	}
	if msgsA[0].Role != "user" || msgsA[0].Content != "hello" {
		t.Fatalf("unexpected A[0]: %+v", msgsA[0])
	}
	if msgsA[1].Role != "assistant" || msgsA[1].Content != "hi" {
		t.Fatalf("unexpected A[1]: %+v", msgsA[1])
	}
	if msgsB[0].Role != "user" || msgsB[0].Content != "foo" {
		t.Fatalf("unexpected B[0]: %+v", msgsB[0])
	}

	// Ensure copy semantics (modifying returned slice does not affect internal state)
	msgsA[0] = llm.Message{Role: "user", Content: "mutated"}
	msgsA2 := h.Get(userA)
	if msgsA2[0].Content != "hello" {
		t.Fatalf("internal state mutated via returned slice")
	}

	h.Reset(userA)
	if len(h.Get(userA)) != 0 {
		t.Fatalf("reset did not clear user A")
	}
	if len(h.Get(userB)) != 2 {
		t.Fatalf("reset should not affect other users")
	}
}

func TestHistoryWindowBound(t *testing.T) {
	h := NewManager()
	user := int64(7)

	for i := 0; i < MaxTurns+25; i++ {
		h.AppendUser(user, fmt.Sprintf("msg-%d", i))
	}

	msgs := h.Get(user)
	if len(msgs) != MaxTurns {
		t.Fatalf("window length = %d, want %d", len(msgs), MaxTurns)
	}
	// Oldest entries dropped first, order preserved.
	for i, m := range msgs {
		want := fmt.Sprintf("msg-%d", i+25)
		if m.Content != want {
			t.Fatalf("msgs[%d] = %q, want %q", i, m.Content, want)
		}
	}
}

func TestLastUserMessage(t *testing.T) {
	h := NewManager()
	user := int64(3)

	if _, ok := h.LastUserMessage(user); ok {
		t.Fatalf("fresh user should have no last message")
	}

	h.AppendUser(user, "first")
	h.AppendAssistant(user, "replied")
	h.AppendUser(user, "second")
	h.AppendAssistant(user, "replied again")
	h.AppendSystem(user, "note")

	last, ok := h.LastUserMessage(user)
	if !ok || last != "second" {
		t.Fatalf("got (%q, %v), want (second, true)", last, ok)
	}

	h.Reset(user)
	if _, ok := h.LastUserMessage(user); ok {
		t.Fatalf("reset user should have no last message")
	}
}

func TestConcurrentAppendsSameUser(t *testing.T) {
	h := NewManager()
	user := int64(9)
	const n = 30 // below the window bound so nothing is trimmed

	var wg sync.WaitGroup
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			h.AppendUser(user, fmt.Sprintf("c-%d", i))
		}(i)
	}
	wg.Wait()

	msgs := h.Get(user)
	if len(msgs) != n {
		t.Fatalf("lost updates: got %d appends, want %d", len(msgs), n)
	}
	seen := make(map[string]bool, n)
	for _, m := range msgs {
		seen[m.Content] = true
	}
	for i := 0; i < n; i++ {
		if !seen[fmt.Sprintf("c-%d", i)] {
			t.Fatalf("append c-%d missing", i)
		}
	}
}

func TestConcurrentUsersIsolated(t *testing.T) {
	h := NewManager()
	const perUser = 20

	var wg sync.WaitGroup
	for u := int64(1); u <= 4; u++ {
		wg.Add(1)
		go func(u int64) {
			defer wg.Done()
			for i := 0; i < perUser; i++ {
				h.AppendUser(u, fmt.Sprintf("u%d-%d", u, i))
			}
		}(u)
	}
	wg.Wait()

	for u := int64(1); u <= 4; u++ {
		msgs := h.Get(u)
		if len(msgs) != perUser {
			t.Fatalf("user %d has %d messages, want %d", u, len(msgs), perUser)
		}
		for i, m := range msgs {
			want := fmt.Sprintf("u%d-%d", u, i)
			if m.Content != want {
				t.Fatalf("user %d msgs[%d] = %q, want %q", u, i, m.Content, want)
			}
		}
	}
}
