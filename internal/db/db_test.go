// internal/db/db_test.go
package db

import "testing"

func TestEnsureConnectionParamsDSN(t *testing.T) {
	tests := []struct {
		name string
		in   string
		want string
	}{
		{
			name: "bare path",
			in:   "data/app.db",
			want: "data/app.db?_fk=1&_txlock=immediate&_busy_timeout=5000",
		},
		{
			name: "existing values win",
			in:   "data/app.db?_fk=0&_txlock=deferred",
			want: "data/app.db?_fk=0&_txlock=deferred&_busy_timeout=5000",
		},
		{
			name: "already normalized",
			in:   "data/app.db?_fk=1&_txlock=immediate&_busy_timeout=5000",
			want: "data/app.db?_fk=1&_txlock=immediate&_busy_timeout=5000",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := ensureConnectionParamsDSN(tt.in); got != tt.want {
				t.Errorf("ensureConnectionParamsDSN(%q) = %q, want %q", tt.in, got, tt.want)
			}
		})
	}
}
