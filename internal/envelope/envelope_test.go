package envelope

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
)

func TestIssueField(t *testing.T) {
	cases := []struct {
		path []any
		want string
	}{
		{[]any{"email"}, "email"},
		{[]any{float64(0), "name"}, "name"},
		{nil, ""},
		{[]any{float64(2)}, ""},
	}
	for _, c := range cases {
		if got := (Issue{Path: c.path}).Field(); got != c.want {
			t.Errorf("Field(%v) = %q, want %q", c.path, got, c.want)
		}
	}
}

func TestWriteFail_AlwaysHasErrorsArray(t *testing.T) {
	rec := httptest.NewRecorder()
	WriteFail(rec, http.StatusInternalServerError, "Internal Server Error")

	if rec.Code != http.StatusInternalServerError {
		t.Fatalf("status = %d", rec.Code)
	}
	var body map[string]any
	if err := json.Unmarshal(rec.Body.Bytes(), &body); err != nil {
		t.Fatalf("decode: %v", err)
	}
	errs, ok := body["errors"].([]any)
	if !ok || len(errs) != 0 {
		t.Fatalf("errors = %#v, want empty array", body["errors"])
	}
	if body["success"] != false || body["data"] != nil {
		t.Fatalf("unexpected body %v", body)
	}
}

func TestWriteOK_DefaultsMessage(t *testing.T) {
	rec := httptest.NewRecorder()
	WriteOK(rec, http.StatusCreated, map[string]int{"a": 1}, "")

	var body Response
	if err := json.Unmarshal(rec.Body.Bytes(), &body); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if body.Message != "Success" || !body.Success || body.StatusCode != 201 {
		t.Fatalf("unexpected body %+v", body)
	}
	if ct := rec.Header().Get("Content-Type"); ct != "application/json; charset=utf-8" {
		t.Fatalf("content-type = %q", ct)
	}
}
