package brdoc

import "testing"

func TestValidCPF(t *testing.T) {
	valid := []string{
		"529.982.247-25",
		"52998224725",
		"111.444.777-35",
	}
	for _, s := range valid {
		if !ValidCPF(s) {
			t.Errorf("ValidCPF(%q) = false, want true", s)
		}
	}

	invalid := []string{
		"",
		"123",
		"52998224724",    // wrong check digit
		"111.111.111-11", // repeated digits
		"00000000000",
		"529982247250", // too long
	}
	for _, s := range invalid {
		if ValidCPF(s) {
			t.Errorf("ValidCPF(%q) = true, want false", s)
		}
	}
}

func TestMaskCPF(t *testing.T) {
	if got := MaskCPF("52998224725"); got != "529.982.247-25" {
		t.Fatalf("MaskCPF = %q", got)
	}
	if got := MaskCPF("123"); got != "123" {
		t.Fatalf("MaskCPF should leave short input unchanged, got %q", got)
	}
}

func TestCEP(t *testing.T) {
	if !ValidCEP("01310-100") {
		t.Error("ValidCEP(01310-100) = false")
	}
	if ValidCEP("0131") {
		t.Error("ValidCEP(0131) = true")
	}
	if got := MaskCEP("01310100"); got != "01310-100" {
		t.Fatalf("MaskCEP = %q", got)
	}
}

func TestMaskPhone(t *testing.T) {
	if got := MaskPhone("1133334444"); got != "(11) 3333-4444" {
		t.Fatalf("landline mask = %q", got)
	}
	if got := MaskPhone("11988887777"); got != "(11) 98888-7777" {
		t.Fatalf("mobile mask = %q", got)
	}
	if got := MaskPhone("123"); got != "123" {
		t.Fatalf("short input changed: %q", got)
	}
}

func TestUnmaskDigits(t *testing.T) {
	if got := UnmaskDigits("(11) 98888-7777"); got != "11988887777" {
		t.Fatalf("UnmaskDigits = %q", got)
	}
}
