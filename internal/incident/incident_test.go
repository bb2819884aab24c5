package incident

import (
	"errors"
	"testing"
)

func TestParseUID(t *testing.T) {
	tests := []struct {
		uid     string
		want    Tag
		wantErr bool
	}{
		{"asn_1", TagASN, false},
		{"asrs_1234", TagASRS, false},
		{"pci_abc_def", TagPCI, false},
		{"asrs_", TagASRS, false},
		{"foo_1", "", true},
		{"asn1", "", true},
		{"", "", true},
		{"ASN_1", "", true},
		{"_asn_1", "", true},
	}

	for _, tt := range tests {
		t.Run(tt.uid, func(t *testing.T) {
			got, err := ParseUID(tt.uid)
			if tt.wantErr {
				if !errors.Is(err, ErrInvalidUID) {
					t.Fatalf("ParseUID(%q) error = %v, want ErrInvalidUID", tt.uid, err)
				}
				return
			}
			if err != nil {
				t.Fatalf("ParseUID(%q) unexpected error: %v", tt.uid, err)
			}
			if got != tt.want {
				t.Errorf("ParseUID(%q) = %q, want %q", tt.uid, got, tt.want)
			}
		})
	}
}

func TestJoin(t *testing.T) {
	narrative := "Test ASRS synopsis"
	o := &Incident{UID: "asrs_1", Narrative: &narrative}

	jr := Join(nil, o)
	if jr.SourceUID != "asrs_1" {
		t.Errorf("SourceUID = %q, want asrs_1", jr.SourceUID)
	}
	if jr.OriginNarrative == nil || *jr.OriginNarrative != narrative {
		t.Errorf("OriginNarrative = %v, want %q", jr.OriginNarrative, narrative)
	}

	c := &ClassificationResult{ID: 1, SourceUID: "asrs_1"}
	jr = Join(c, nil)
	if jr.ID != 1 || jr.OriginUID != nil {
		t.Errorf("Join(c, nil) = %+v", jr)
	}
}

func TestNormaliseICAO(t *testing.T) {
	if got := NormaliseICAO(" KJFK "); got != "kjfk" {
		t.Errorf("NormaliseICAO = %q, want kjfk", got)
	}
}
