package rule

import (
	"github.com/viant/ruleflow/model"
	"github.com/viant/ruleflow/model/types"
)

// FiredRule is a matched rule whose action completed.
type FiredRule struct {
	Rule    *model.Rule            `json:"rule"`
	Payload map[string]interface{} `json:"payload,omitempty"`
}

// SkippedRule is a rule whose condition could not be evaluated.
type SkippedRule struct {
	Rule  *model.Rule `json:"rule"`
	Error string      `json:"error"`
}

// Result summarises one evaluation pass.
type Result struct {
	Fired   []*FiredRule   `json:"fired,omitempty"`
	Skipped []*SkippedRule `json:"skipped,omitempty"`
	// Cancelled is set when an action stopped the remaining actions.
	Cancelled bool `json:"cancelled,omitempty"`
	// Pending is set when an action asked to wait for external input.
	Pending bool `json:"pending,omitempty"`
	// Blocked names the exhausted resource; no action ran.
	Blocked    string `json:"blocked,omitempty"`
	Matched    int    `json:"matched"`
	Applicable int    `json:"applicable"`
	// Payload merges action payloads in firing order.
	Payload map[string]interface{} `json:"payload,omitempty"`
	// Holdings are resource units acquired by fired rules.
	Holdings map[string]int `json:"holdings,omitempty"`
	Spawned  []string       `json:"spawned,omitempty"`
	FollowUp []string       `json:"followUp,omitempty"`
}

func (r *Result) fire(m *match, output *types.Output) {
	fired := &FiredRule{Rule: m.rule.Clone()}
	if units := m.rule.RequiredUnits(); units > 0 {
		if r.Holdings == nil {
			r.Holdings = map[string]int{}
		}
		r.Holdings[m.rule.Resource] += units
	}
	if output != nil {
		fired.Payload = model.CloneMap(output.Payload)
		if len(output.Payload) > 0 {
			if r.Payload == nil {
				r.Payload = map[string]interface{}{}
			}
			for k, v := range model.CloneMap(output.Payload) {
				r.Payload[k] = v
			}
		}
		if output.Wait {
			r.Pending = true
		}
		r.Spawned = append(r.Spawned, output.Spawned...)
		r.FollowUp = append(r.FollowUp, output.FollowUp...)
	}
	r.Fired = append(r.Fired, fired)
}

// Done reports whether every applicable rule's work is complete: the pass
// was cancelled, or rules matched and nothing is pending or blocked.
func (r *Result) Done() bool {
	if r.Blocked != "" || r.Pending {
		return false
	}
	if r.Cancelled || r.Applicable == 0 {
		return true
	}
	return r.Matched > 0
}
