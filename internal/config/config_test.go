package config

import "testing"

func TestIsHexAddress(t *testing.T) {
	valid := []string{
		"0x833589fcd6edb6e08f4c7c32d4f71b54bda02913",
		"0x1111111111111111111111111111111111111111",
		"0xABCDEF0123456789abcdef0123456789ABCDEF01",
	}
	for _, addr := range valid {
		if !IsHexAddress(addr) {
			t.Errorf("%s should be valid", addr)
		}
	}

	invalid := []string{
		"",
		"833589fcd6edb6e08f4c7c32d4f71b54bda02913",   // no prefix
		"0x833589fcd6edb6e08f4c7c32d4f71b54bda0291",  // 39 chars
		"0x833589fcd6edb6e08f4c7c32d4f71b54bda029133", // 41 chars
		"0xzz3589fcd6edb6e08f4c7c32d4f71b54bda02913", // non-hex
	}
	for _, addr := range invalid {
		if IsHexAddress(addr) {
			t.Errorf("%s should be invalid", addr)
		}
	}
}

func TestValidateRequiresAddresses(t *testing.T) {
	cfg := Load()
	cfg.ReceiverAddress = ""
	if err := cfg.Validate(); err == nil {
		t.Fatal("missing receiver address should fail validation")
	}

	cfg = Load()
	cfg.ReceiverAddress = "0x1111111111111111111111111111111111111111"
	if err := cfg.Validate(); err != nil {
		t.Fatalf("valid config rejected: %v", err)
	}
}

func TestValidateAllotments(t *testing.T) {
	cfg := Load()
	cfg.ReceiverAddress = "0x1111111111111111111111111111111111111111"
	cfg.DailyPicksOG = 0
	if err := cfg.Validate(); err == nil {
		t.Fatal("og allotment below base should fail validation")
	}
}
