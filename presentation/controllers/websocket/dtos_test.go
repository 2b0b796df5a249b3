package websocket

import (
	"encoding/json"
	"testing"
)

func TestMatchRefAcceptsBareAndObjectForms(t *testing.T) {
	tests := []struct {
		raw     string
		want    int64
		wantErr bool
	}{
		{`7`, 7, false},
		{`"7"`, 7, false},
		{`{"matchId":7}`, 7, false},
		{` 12 `, 12, false},
		{`"abc"`, 0, true},
		{`7.5`, 0, true},
		{`null`, 0, true},
		{`[7]`, 0, true},
	}

	for _, tt := range tests {
		t.Run(tt.raw, func(t *testing.T) {
			var ref MatchRef
			err := json.Unmarshal([]byte(tt.raw), &ref)
			if (err != nil) != tt.wantErr {
				t.Fatalf("Unmarshal(%s) error = %v, wantErr %v", tt.raw, err, tt.wantErr)
			}
			if !tt.wantErr && ref.MatchID != tt.want {
				t.Errorf("MatchID = %d, want %d", ref.MatchID, tt.want)
			}
		})
	}
}

func TestEventRefObjectForm(t *testing.T) {
	var ref EventRef
	if err := json.Unmarshal([]byte(`{"eventId":3}`), &ref); err != nil {
		t.Fatalf("Unmarshal() error = %v", err)
	}
	if ref.EventID != 3 {
		t.Errorf("EventID = %d, want 3", ref.EventID)
	}
}
