package gcs

import "testing"

func TestSplitURI(t *testing.T) {
	tests := []struct {
		uri     string
		bucket  string
		object  string
		wantErr bool
	}{
		{"gs://receipts/2024/rcpt-1.txt", "receipts", "2024/rcpt-1.txt", false},
		{"gs://receipts/top.json", "receipts", "top.json", false},
		{"gs://receipts", "", "", true},
		{"gs://receipts/", "", "", true},
		{"http://example.com/x", "", "", true},
		{"", "", "", true},
	}

	for _, tt := range tests {
		bucket, object, err := SplitURI(tt.uri)
		if tt.wantErr {
			if err == nil {
				t.Errorf("SplitURI(%q): expected error", tt.uri)
			}
			continue
		}
		if err != nil {
			t.Errorf("SplitURI(%q): unexpected error: %v", tt.uri, err)
			continue
		}
		if bucket != tt.bucket || object != tt.object {
			t.Errorf("SplitURI(%q) = (%q, %q), want (%q, %q)", tt.uri, bucket, object, tt.bucket, tt.object)
		}
	}
}

func TestFilename(t *testing.T) {
	if got := Filename("gs://receipts/2024/rcpt-1.txt"); got != "rcpt-1.txt" {
		t.Errorf("Filename = %q, want rcpt-1.txt", got)
	}
	if got := Filename("gs://receipts"); got != "receipts" {
		t.Errorf("Filename = %q, want receipts", got)
	}
}
