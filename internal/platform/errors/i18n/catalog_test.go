package i18n

import "testing"

func TestGetCatalogFallback(t *testing.T) {
	base := GetCatalog("en-US")
	if base == nil {
		t.Fatal("expected base catalog")
	}
	fallback := GetCatalog("missing-locale")
	if fallback != base {
		t.Fatal("expected fallback to en-US catalog")
	}
}

func TestGetCatalogResolvesEmbeddedMessages(t *testing.T) {
	cat := GetCatalog("en-US")
	got := cat.Format("CAMPAIGN_NAME_EMPTY", nil)
	if got != "Campaign name cannot be empty" {
		t.Fatalf("Format(CAMPAIGN_NAME_EMPTY) = %q", got)
	}
}

func TestGetCatalogTranslatedLocale(t *testing.T) {
	cat := GetCatalog("pt-BR")
	if cat.Locale() != "pt-BR" {
		t.Fatalf("Locale() = %q, want pt-BR", cat.Locale())
	}
	got := cat.Format("CAMPAIGN_NAME_EMPTY", nil)
	if got == "" || got == "CAMPAIGN_NAME_EMPTY" {
		t.Fatalf("expected translated message, got %q", got)
	}
}

func TestFormatMetadataTemplating(t *testing.T) {
	cat := NewCatalog("test", map[Code]string{
		"POOL_SLIPPAGE_EXCEEDED": "swap would return {{.AmountOut}}, below minimum {{.MinAmountOut}}",
	})

	got := cat.Format("POOL_SLIPPAGE_EXCEEDED", map[string]string{
		"AmountOut":    "96",
		"MinAmountOut": "97",
	})
	if got != "swap would return 96, below minimum 97" {
		t.Fatalf("Format() = %q", got)
	}
}

func TestFormatFallbacks(t *testing.T) {
	cat := NewCatalog("test", map[Code]string{
		"code": "hello {{.Name}}",
	})

	if cat.Format("unknown", nil) != "unknown" {
		t.Fatal("expected code fallback when template missing")
	}
	if cat.Format("code", nil) != "hello <no value>" {
		t.Fatal("expected template to render missing metadata")
	}
}

func TestFormatTemplateErrorFallback(t *testing.T) {
	cat := NewCatalog("test", map[Code]string{
		"code": "{{ if .Name }}",
	})
	if cat.Format("code", map[string]string{"Name": "X"}) != "{{ if .Name }}" {
		t.Fatal("expected template fallback on parse error")
	}
}

func TestRegisterCatalog(t *testing.T) {
	custom := NewCatalog("custom", map[Code]string{"code": "ok"})
	RegisterCatalog("custom", custom)
	if got := GetCatalog("custom"); got != custom {
		t.Fatal("expected registered catalog")
	}
}
