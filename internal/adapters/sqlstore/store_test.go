package sqlstore

import "testing"

func TestStore_Placeholders(t *testing.T) {
	tests := []struct {
		name     string
		numbered bool
		query    string
		want     string
	}{
		{
			name:  "question marks kept",
			query: "SELECT * FROM users WHERE id = ? AND email = ?",
			want:  "SELECT * FROM users WHERE id = ? AND email = ?",
		},
		{
			name:     "numbered for postgres",
			numbered: true,
			query:    "INSERT INTO tokens (a, b, c) VALUES (?, ?, ?)",
			want:     "INSERT INTO tokens (a, b, c) VALUES ($1, $2, $3)",
		},
		{
			name:     "ten or more",
			numbered: true,
			query:    "VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)",
			want:     "VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := &Store{dialect: Dialect{NumberedParams: tt.numbered}}
			if got := s.q(tt.query); got != tt.want {
				t.Fatalf("q() = %q, want %q", got, tt.want)
			}
		})
	}
}
