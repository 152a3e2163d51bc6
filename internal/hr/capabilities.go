package hr

// Dashboard capabilities granted to an employee. Derived once from position
// and department instead of scattering string comparisons across call sites.
const (
	CapDirection  = "direction"
	CapRH         = "rh"
	CapFinance    = "comptabilite"
	CapCommercial = "commercial"
	CapOperations = "operations"
	CapSupport    = "support"
	CapIT         = "it"
	CapQueue      = "queue"
	CapMonitor    = "monitor"
)

var directionPositions = map[string]bool{
	"directeur_general": true,
	"directeur_adjoint": true,
	"directeur_agence":  true,
}

var managerPositions = map[string]bool{
	"manager":          true,
	"chef_departement": true,
	"superviseur":      true,
}

var positionCaps = map[string][]string{
	"responsable_rh":         {CapRH},
	"assistant_rh":           {CapRH},
	"responsable_comptable":  {CapFinance},
	"comptable":              {CapFinance},
	"caissier":               {CapFinance, CapQueue},
	"responsable_commercial": {CapCommercial},
	"agent_commercial":       {CapCommercial},
	"conseiller_client":      {CapCommercial, CapQueue},
	"responsable_operations": {CapOperations},
	"technicien":             {CapOperations},
	"installateur":           {CapOperations},
	"responsable_support":    {CapSupport, CapQueue, CapMonitor},
	"agent_guichet":          {CapSupport, CapQueue, CapMonitor},
	"agent_support":          {CapSupport, CapQueue},
	"responsable_it":         {CapIT},
	"developpeur":            {CapIT},
	"administrateur_systeme": {CapIT},
}

var departmentCaps = map[string]string{
	"rh":           CapRH,
	"comptabilite": CapFinance,
	"commercial":   CapCommercial,
	"operations":   CapOperations,
	"support":      CapSupport,
	"it":           CapIT,
}

// Capabilities returns the dashboard capability set for a position and
// department. Direction sees everything; managers see their department plus
// queue supervision.
func Capabilities(position, department string) map[string]bool {
	caps := map[string]bool{}
	if directionPositions[position] {
		for _, c := range []string{CapDirection, CapRH, CapFinance, CapCommercial, CapOperations, CapSupport, CapIT, CapQueue, CapMonitor} {
			caps[c] = true
		}
		return caps
	}
	if managerPositions[position] {
		caps[CapQueue] = true
		caps[CapMonitor] = true
		if c, ok := departmentCaps[department]; ok {
			caps[c] = true
		}
		return caps
	}
	for _, c := range positionCaps[position] {
		caps[c] = true
	}
	if c, ok := departmentCaps[department]; ok {
		caps[c] = true
	}
	return caps
}

// CapabilityList is Capabilities flattened to a stable slice for API
// responses.
func CapabilityList(position, department string) []string {
	caps := Capabilities(position, department)
	ordered := []string{CapDirection, CapRH, CapFinance, CapCommercial, CapOperations, CapSupport, CapIT, CapQueue, CapMonitor}
	var out []string
	for _, c := range ordered {
		if caps[c] {
			out = append(out, c)
		}
	}
	return out
}

func CanManageQueue(position, department string) bool {
	return Capabilities(position, department)[CapQueue]
}
