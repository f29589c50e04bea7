package httputil

import (
	"reflect"
	"testing"
)

func TestParseIDList(t *testing.T) {
	tests := []struct {
		in      string
		want    []int64
		wantErr bool
	}{
		{"", nil, false},
		{"1", []int64{1}, false},
		{"1,2,3", []int64{1, 2, 3}, false},
		{"4, 5", []int64{4, 5}, false},
		{"abc", nil, true},
		{"1,abc", nil, true},
		{"1,", nil, true},
		{"1.5", nil, true},
	}

	for _, tt := range tests {
		got, err := ParseIDList(tt.in)
		if tt.wantErr {
			if err == nil {
				t.Errorf("ParseIDList(%q) expected error, got %v", tt.in, got)
			}
			continue
		}
		if err != nil {
			t.Errorf("ParseIDList(%q) returned error: %v", tt.in, err)
			continue
		}
		if !reflect.DeepEqual(got, tt.want) {
			t.Errorf("ParseIDList(%q) = %v; want %v", tt.in, got, tt.want)
		}
	}
}

func TestParseBoolFlag(t *testing.T) {
	tests := []struct {
		in      string
		want    bool
		wantErr bool
	}{
		{"", false, false},
		{"0", false, false},
		{"1", true, false},
		{"2", true, false},
		{"true", false, true},
		{"yes", false, true},
	}

	for _, tt := range tests {
		got, err := ParseBoolFlag(tt.in)
		if tt.wantErr {
			if err == nil {
				t.Errorf("ParseBoolFlag(%q) expected error, got %v", tt.in, got)
			}
			continue
		}
		if err != nil {
			t.Errorf("ParseBoolFlag(%q) returned error: %v", tt.in, err)
			continue
		}
		if got != tt.want {
			t.Errorf("ParseBoolFlag(%q) = %v; want %v", tt.in, got, tt.want)
		}
	}
}
