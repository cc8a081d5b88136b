package questions

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
)

func TestTriviaClientFetch(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/api.php" {
			t.Fatalf("unexpected path %s", r.URL.Path)
		}
		if got := r.URL.Query().Get("amount"); got != "7" {
			t.Fatalf("unexpected amount %s", got)
		}
		_ = json.NewEncoder(w).Encode(map[string]any{
			"response_code": 0,
			"results": []map[string]any{
				{
					"question":          "Who wrote &quot;Hamlet&quot;?",
					"correct_answer":    "Shakespeare",
					"incorrect_answers": []string{"Dickens", "Austen", "Twain"},
				},
			},
		})
	}))
	defer server.Close()

	client := NewTriviaClient(server.URL)
	items, err := client.Fetch(context.Background(), 7)
	if err != nil {
		t.Fatalf("fetch: %v", err)
	}
	if len(items) != 1 {
		t.Fatalf("expected 1 item, got %d", len(items))
	}
	q := items[0]
	if q.Text != `Who wrote "Hamlet"?` {
		t.Fatalf("expected HTML entities unescaped, got %q", q.Text)
	}
	if len(q.Options) != 4 || q.Options[q.CorrectOption] != "Shakespeare" {
		t.Fatalf("unexpected options %+v", q)
	}
}

func TestTriviaClientErrorCode(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_ = json.NewEncoder(w).Encode(map[string]any{"response_code": 1, "results": []any{}})
	}))
	defer server.Close()

	client := NewTriviaClient(server.URL)
	if _, err := client.Fetch(context.Background(), 7); err == nil {
		t.Fatalf("expected error for non-zero response code")
	}
}
