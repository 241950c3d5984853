package format

import (
	"strings"
	"testing"
)

func TestTable_ASCII(t *testing.T) {
	tbl := NewTable(ASCII)
	tbl.Header("BACKEND", "PENDING")
	tbl.Row("ibm_torino", 12)
	tbl.Row("ibm_fez", 480)
	tbl.AlignRight(2)

	out := tbl.String()
	for _, want := range []string{"BACKEND", "ibm_torino", "480"} {
		if !strings.Contains(out, want) {
			t.Errorf("ASCII table missing %q:\n%s", want, out)
		}
	}
}

func TestTable_Markdown(t *testing.T) {
	tbl := NewTable(Markdown)
	tbl.Header("label", "global")
	tbl.Row("A", "99.12")

	out := tbl.String()
	if !strings.Contains(out, "| label |") && !strings.Contains(out, "| label ") {
		t.Errorf("markdown table missing header row:\n%s", out)
	}
	if !strings.Contains(out, "---") {
		t.Errorf("markdown table missing separator:\n%s", out)
	}
}
