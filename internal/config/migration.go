package config

import (
	"log/slog"

	"github.com/micro-nova/clockgen-go/internal/si5351"
)

// Migrate fills in values that older or hand-written plan files leave
// out.
func Migrate(plan *Plan) {
	if plan.Address == 0 {
		plan.Address = si5351.DefaultAddress
	}

	// A zero load means "leave the chip default"; only a reset plan needs one.
	if plan.CrystalLoad == 0 && !plan.Preserve && plan.Crystal != si5351.CrystalNone {
		plan.CrystalLoad = si5351.Load10pF
	}

	for i := range plan.Outputs {
		o := &plan.Outputs[i]
		if o.Phase > 0x7F {
			slog.Warn("config: phase offset out of range, clamping", "channel", o.Channel, "phase", o.Phase)
			o.Phase = 0x7F
		}
	}

	if plan.PLLs == nil {
		plan.PLLs = []PLLPlan{}
	}
	if plan.Multisynths == nil {
		plan.Multisynths = []MultisynthPlan{}
	}
	if plan.Outputs == nil {
		plan.Outputs = []OutputPlan{}
	}
}
