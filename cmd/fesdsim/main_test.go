package main

import "testing"

func TestParseParam(t *testing.T) {
	tests := []struct {
		in      string
		name    string
		vals    []float64
		wantErr bool
	}{
		{"sigma_0=1,0.5", "sigma_0", []float64{1, 0.5}, false},
		{"comp_tol= 1e-6 , 1e-8", "comp_tol", []float64{1e-6, 1e-8}, false},
		{"sigma_0", "", nil, true},
		{"=1", "", nil, true},
		{"slope=a", "", nil, true},
	}

	for _, tt := range tests {
		name, vals, err := parseParam(tt.in)
		if (err != nil) != tt.wantErr {
			t.Errorf("%q: err = %v", tt.in, err)
			continue
		}
		if tt.wantErr {
			continue
		}
		if name != tt.name || len(vals) != len(tt.vals) {
			t.Errorf("%q: got %s %v", tt.in, name, vals)
			continue
		}
		for i := range vals {
			if vals[i] != tt.vals[i] {
				t.Errorf("%q: value %d = %v, want %v", tt.in, i, vals[i], tt.vals[i])
			}
		}
	}
}
