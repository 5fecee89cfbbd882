package carrier

import "testing"

func TestNormalizePhone(t *testing.T) {
	tests := []struct {
		raw     string
		want    string
		wantErr bool
	}{
		{"01012345678", "01012345678", false},
		{"010-1234-5678", "01012345678", false},
		{" 010 1234 5678 ", "01012345678", false},
		{"011.123.4567", "0111234567", false},
		{"+82 10-1234-5678", "01012345678", false},
		{"+82010-1234-5678", "01012345678", false},
		{"", "", true},
		{"02-123-4567", "", true},
		{"010-123-45", "", true},
		{"010123456789", "", true},
		{"010-abcd-5678", "", true},
	}

	for _, tt := range tests {
		got, err := NormalizePhone(tt.raw)
		if (err != nil) != tt.wantErr {
			t.Errorf("NormalizePhone(%q) error = %v; wantErr %t", tt.raw, err, tt.wantErr)
			continue
		}
		if got != tt.want {
			t.Errorf("NormalizePhone(%q) = %q; want %q", tt.raw, got, tt.want)
		}
	}
}
