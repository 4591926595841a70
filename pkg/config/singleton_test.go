package config

import "testing"

func TestSetAndGetConfig(t *testing.T) {
	cfg := validConfig()
	SetConfig(&cfg)
	t.Cleanup(func() { SetConfig(nil) })

	got := GetConfig()
	if got != &cfg {
		t.Error("GetConfig did not return the config set by SetConfig")
	}
}

func TestMustGetConfigPanicsWhenUnset(t *testing.T) {
	SetConfig(nil)

	defer func() {
		if recover() == nil {
			t.Error("expected MustGetConfig to panic when unset")
		}
	}()
	MustGetConfig()
}
