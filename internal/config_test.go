package internal

import (
	"strings"
	"testing"
)

func TestAuthConfig_DisabledMode(t *testing.T) {
	cfg := AuthConfig{Mode: "disabled", Token: ""}
	if err := cfg.Validate(); err != nil {
		t.Fatalf("disabled mode should pass: %v", err)
	}
	if cfg.AuthEnabled() {
		t.Error("disabled mode should not be enabled")
	}
}

func TestAuthConfig_EmptyModeDefaultsDisabled(t *testing.T) {
	cfg := AuthConfig{Mode: "", Token: ""}
	if err := cfg.Validate(); err != nil {
		t.Fatalf("empty mode should default to disabled: %v", err)
	}
	if cfg.Mode != AuthModeDisabled {
		t.Errorf("mode = %q, want %q", cfg.Mode, AuthModeDisabled)
	}
}

func TestAuthConfig_TokenModeValid(t *testing.T) {
	cfg := AuthConfig{Mode: "token", Token: "mysecret"}
	if err := cfg.Validate(); err != nil {
		t.Fatalf("token mode with token should pass: %v", err)
	}
	if !cfg.AuthEnabled() {
		t.Error("token mode should be enabled")
	}
}

func TestAuthConfig_TokenModeEmptyToken(t *testing.T) {
	cfg := AuthConfig{Mode: "token", Token: ""}
	err := cfg.Validate()
	if err == nil {
		t.Fatal("token mode with empty token should fail")
	}
	if !strings.Contains(err.Error(), "token is empty") {
		t.Errorf("unexpected error: %v", err)
	}
}

func TestAuthConfig_InvalidMode(t *testing.T) {
	cfg := AuthConfig{Mode: "magic", Token: "x"}
	err := cfg.Validate()
	if err == nil {
		t.Fatal("invalid mode should fail validation")
	}
}

func TestFullConfig_AuthValidationCalled(t *testing.T) {
	cfg := NewDefaultConfig()
	cfg.Auth.Mode = "token"
	cfg.Auth.Token = ""
	err := cfg.Validate()
	if err == nil {
		t.Fatal("full config validate should catch auth error")
	}
}

func TestDefaultConfigIsValid(t *testing.T) {
	if err := NewDefaultConfig().Validate(); err != nil {
		t.Fatalf("default config should pass: %v", err)
	}
}

func TestAppConfig_UnknownSurface(t *testing.T) {
	cfg := NewDefaultConfig()
	cfg.App.Surface = "sidebar"
	if err := cfg.Validate(); err == nil {
		t.Fatal("unknown surface should fail validation")
	}
}

func TestAppConfig_AnonymousSurface(t *testing.T) {
	cfg := NewDefaultConfig()
	cfg.App.Surface = ""
	if err := cfg.Validate(); err != nil {
		t.Fatalf("anonymous surface should pass: %v", err)
	}
}

func TestDataConfig(t *testing.T) {
	tests := []struct {
		name    string
		cfg     DataConfig
		wantErr bool
	}{
		{"file", DataConfig{Dir: "d", Backend: BackendFile}, false},
		{"empty backend", DataConfig{Dir: "d"}, false},
		{"sqlite", DataConfig{Dir: "d", Backend: BackendSQLite, SQLitePath: "d.db"}, false},
		{"sqlite without path", DataConfig{Dir: "d", Backend: BackendSQLite}, true},
		{"unknown backend", DataConfig{Dir: "d", Backend: "s3"}, true},
		{"no dir", DataConfig{Backend: BackendFile}, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.cfg.Validate()
			if (err != nil) != tt.wantErr {
				t.Errorf("err = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}

func TestBusConfig(t *testing.T) {
	tests := []struct {
		name    string
		cfg     BusConfig
		surface string
		wantErr bool
	}{
		{"local", BusConfig{}, "widget", false},
		{"http main serves hub", BusConfig{Transport: TransportHTTP}, "main", false},
		{"http widget needs hub url", BusConfig{Transport: TransportHTTP}, "widget", true},
		{"http widget", BusConfig{Transport: TransportHTTP, HubURL: "http://x/bus"}, "widget", false},
		{"nats needs url", BusConfig{Transport: TransportNATS}, "main", true},
		{"nats", BusConfig{Transport: TransportNATS, NATSURL: "nats://x"}, "main", false},
		{"unknown", BusConfig{Transport: "carrier-pigeon"}, "main", true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.cfg.Validate(tt.surface)
			if (err != nil) != tt.wantErr {
				t.Errorf("err = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}

func TestBusConfig_ServesHub(t *testing.T) {
	cfg := BusConfig{Transport: TransportHTTP}
	if !cfg.ServesHub("main") {
		t.Error("main should serve the hub")
	}
	if cfg.ServesHub("widget") {
		t.Error("widget should not serve the hub")
	}
	cfg.Transport = TransportNATS
	if cfg.ServesHub("main") {
		t.Error("nats main should not serve the hub")
	}
}

func TestWidgetConfig_MaxBelowMin(t *testing.T) {
	cfg := NewDefaultConfig()
	cfg.Widget.MaxScale = 50
	if err := cfg.Validate(); err == nil {
		t.Fatal("max scale below min scale should fail")
	}
}

func TestStoreConfig_BlankLogType(t *testing.T) {
	cfg := StoreConfig{LogTypes: []string{"simple", ""}}
	if err := cfg.Validate(); err == nil {
		t.Fatal("blank log type should fail")
	}
}
