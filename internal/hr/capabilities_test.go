package hr

import "testing"

func TestCapabilitiesDirection(t *testing.T) {
	caps := Capabilities("directeur_general", "direction")
	for _, c := range []string{CapDirection, CapRH, CapFinance, CapCommercial, CapOperations, CapSupport, CapIT, CapQueue, CapMonitor} {
		if !caps[c] {
			t.Fatalf("direction missing capability %q", c)
		}
	}
}

func TestCapabilitiesByPosition(t *testing.T) {
	cases := []struct {
		position   string
		department string
		want       []string
		deny       []string
	}{
		{"agent_guichet", "support", []string{CapSupport, CapQueue, CapMonitor}, []string{CapRH, CapDirection}},
		{"comptable", "comptabilite", []string{CapFinance}, []string{CapQueue, CapIT}},
		{"technicien", "operations", []string{CapOperations}, []string{CapFinance}},
		{"responsable_rh", "rh", []string{CapRH}, []string{CapDirection, CapQueue}},
		{"developpeur", "it", []string{CapIT}, []string{CapRH, CapQueue}},
		{"stagiaire", "autre", nil, []string{CapRH, CapQueue, CapDirection}},
	}
	for _, tt := range cases {
		caps := Capabilities(tt.position, tt.department)
		for _, c := range tt.want {
			if !caps[c] {
				t.Fatalf("%s/%s: missing %q", tt.position, tt.department, c)
			}
		}
		for _, c := range tt.deny {
			if caps[c] {
				t.Fatalf("%s/%s: unexpected %q", tt.position, tt.department, c)
			}
		}
	}
}

func TestCapabilitiesManagerInheritsDepartment(t *testing.T) {
	caps := Capabilities("superviseur", "commercial")
	if !caps[CapCommercial] || !caps[CapQueue] || !caps[CapMonitor] {
		t.Fatalf("manager capabilities incomplete: %v", caps)
	}
	if caps[CapDirection] {
		t.Fatal("manager must not get direction capability")
	}
}

func TestCanManageQueue(t *testing.T) {
	if !CanManageQueue("agent_guichet", "support") {
		t.Fatal("guichet agent must manage the queue")
	}
	if CanManageQueue("comptable", "comptabilite") {
		t.Fatal("accountant must not manage the queue")
	}
}

func TestCapabilityListStableOrder(t *testing.T) {
	a := CapabilityList("agent_guichet", "support")
	b := CapabilityList("agent_guichet", "support")
	if len(a) != len(b) {
		t.Fatalf("unstable list: %v vs %v", a, b)
	}
	for i := range a {
		if a[i] != b[i] {
			t.Fatalf("unstable order: %v vs %v", a, b)
		}
	}
}
