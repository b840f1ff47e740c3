package htmlsanitize_test

import (
	"testing"

	"github.com/barbearia/calendario/internal/app/system/htmlsanitize"
)

func TestPlainText_Empty(t *testing.T) {
	if got := htmlsanitize.PlainText(""); got != "" {
		t.Errorf("expected empty string, got %q", got)
	}
}

func TestPlainText_KeepsText(t *testing.T) {
	in := "Corte degradê, sem máquina no topo"
	if got := htmlsanitize.PlainText(in); got != in {
		t.Errorf("expected plain text unchanged, got %q", got)
	}
}

func TestPlainText_StripsTags(t *testing.T) {
	got := htmlsanitize.PlainText("  <b>Barba</b> <i>completa</i>  ")
	if got != "Barba completa" {
		t.Errorf("expected tags stripped, got %q", got)
	}
}

func TestPlainText_RemovesScript(t *testing.T) {
	got := htmlsanitize.PlainText("<script>alert('xss')</script>Obrigado")
	if got != "Obrigado" {
		t.Errorf("expected script removed, got %q", got)
	}
}
