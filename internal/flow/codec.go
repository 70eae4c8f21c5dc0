package flow

import (
	"encoding/json"
	"fmt"

	"github.com/mj1618/guide-cli/internal/locator"
)

// stepEnvelope is the flat on-disk shape of a step: the type tag plus the
// union of all type-specific fields. Plain structured text, human-editable.
type stepEnvelope struct {
	Type          StepType         `json:"type"`
	ID            string           `json:"id"`
	Note          string           `json:"note,omitempty"`
	Annotations   []Annotation     `json:"annotations,omitempty"`
	Target        *locator.Locator `json:"target,omitempty"`
	ExpectedValue string           `json:"expectedValue,omitempty"`
	DurationMs    int              `json:"durationMs,omitempty"`
	Text          string           `json:"text,omitempty"`
}

func encodeStep(s Step) (stepEnvelope, error) {
	env := stepEnvelope{
		Type:        s.Kind(),
		ID:          s.Meta().StepID,
		Note:        s.Meta().Note,
		Annotations: s.Meta().Annotations,
	}
	switch st := s.(type) {
	case ClickStep:
		target := st.Target
		env.Target = &target
	case InputStep:
		target := st.Target
		env.Target = &target
	case SelectStep:
		target := st.Target
		env.Target = &target
		env.ExpectedValue = st.ExpectedValue
	case WaitStep:
		env.DurationMs = st.DurationMs
	case MessageStep:
		env.Target = st.Target
		env.Text = st.Text
	default:
		return env, fmt.Errorf("unhandled step type %T", s)
	}
	return env, nil
}

func decodeStep(env stepEnvelope) (Step, error) {
	meta := StepMeta{StepID: env.ID, Note: env.Note, Annotations: env.Annotations}

	target := func() (locator.Locator, error) {
		if env.Target == nil {
			return locator.Locator{}, fmt.Errorf("step %q (%s) has no target", env.ID, env.Type)
		}
		return *env.Target, nil
	}

	switch env.Type {
	case StepClick:
		t, err := target()
		if err != nil {
			return nil, err
		}
		return ClickStep{StepMeta: meta, Target: t}, nil
	case StepInput:
		t, err := target()
		if err != nil {
			return nil, err
		}
		return InputStep{StepMeta: meta, Target: t}, nil
	case StepSelect:
		t, err := target()
		if err != nil {
			return nil, err
		}
		return SelectStep{StepMeta: meta, Target: t, ExpectedValue: env.ExpectedValue}, nil
	case StepWait:
		if env.DurationMs <= 0 {
			return nil, fmt.Errorf("wait step %q has no positive duration", env.ID)
		}
		return WaitStep{StepMeta: meta, DurationMs: env.DurationMs}, nil
	case StepMessage:
		return MessageStep{StepMeta: meta, Text: env.Text, Target: env.Target}, nil
	default:
		return nil, fmt.Errorf("unknown step type %q", env.Type)
	}
}

// MarshalJSON encodes the steps as a list of tagged envelopes.
func (s Steps) MarshalJSON() ([]byte, error) {
	envs := make([]stepEnvelope, len(s))
	for i, step := range s {
		env, err := encodeStep(step)
		if err != nil {
			return nil, err
		}
		envs[i] = env
	}
	return json.Marshal(envs)
}

// UnmarshalJSON decodes a list of tagged envelopes into concrete step types.
func (s *Steps) UnmarshalJSON(data []byte) error {
	var envs []stepEnvelope
	if err := json.Unmarshal(data, &envs); err != nil {
		return err
	}
	steps := make(Steps, len(envs))
	for i, env := range envs {
		step, err := decodeStep(env)
		if err != nil {
			return err
		}
		steps[i] = step
	}
	*s = steps
	return nil
}
