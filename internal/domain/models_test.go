package domain

import "testing"

func TestTableNames(t *testing.T) {
	cases := []struct {
		name string
		got  string
		want string
	}{
		{"User", User{}.TableName(), "users"},
		{"ChatRecord", ChatRecord{}.TableName(), "chat_records"},
		{"ChatEmbedding", ChatEmbedding{}.TableName(), "chat_embeddings"},
		{"Package", Package{}.TableName(), "packages"},
	}
	for _, tc := range cases {
		if tc.got != tc.want {
			t.Errorf("%s.TableName() = %q, want %q", tc.name, tc.got, tc.want)
		}
	}
}

func TestScopeConstants(t *testing.T) {
	if ScopePersonal == ScopeGroup {
		t.Fatal("scope constants must be distinct")
	}
	if ScopePersonal != "personal" || ScopeGroup != "group" {
		t.Fatalf("unexpected scope values: %q, %q", ScopePersonal, ScopeGroup)
	}
}
