package crypto

import "testing"

func TestCanonicalizeJSON(t *testing.T) {
	testCases := []struct {
		name    string
		input   string
		want    string
		wantErr bool
	}{
		{
			name:  "keys are sorted and whitespace removed",
			input: `{ "serialNumber": "abc", "formatVersion": 1, "description" : "Card" }`,
			want:  `{"description":"Card","formatVersion":1,"serialNumber":"abc"}`,
		},
		{
			name:  "nested objects are sorted",
			input: `{"generic":{"primaryFields":[],"headerFields":[]}}`,
			want:  `{"generic":{"headerFields":[],"primaryFields":[]}}`,
		},
		{
			name:    "invalid json is rejected",
			input:   `{"test": "value"`,
			wantErr: true,
		},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			got, err := CanonicalizeJSON([]byte(tc.input))
			if tc.wantErr {
				if err == nil {
					t.Fatalf("CanonicalizeJSON() expected error, got nil")
				}
				return
			}
			if err != nil {
				t.Fatalf("CanonicalizeJSON() unexpected error: %v", err)
			}
			if string(got) != tc.want {
				t.Errorf("CanonicalizeJSON() = %s, want %s", got, tc.want)
			}
		})
	}
}
