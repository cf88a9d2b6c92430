package textfold

import "testing"

func TestFold(t *testing.T) {
	tests := []struct {
		in, want string
	}{
		{"Gênesis", "genesis"},
		{"ÊXODO", "exodo"},
		{"Cânticos dos Cânticos", "canticos dos canticos"},
		{"Ação de Graças", "acao de gracas"},
		{"plain", "plain"},
		{"", ""},
	}
	for _, tt := range tests {
		if got := Fold(tt.in); got != tt.want {
			t.Errorf("Fold(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}
