// Package connectflow builds the verification contact flow and keeps
// the prompt and phone number registry the voice lookup reads at call
// time.
package connectflow

import (
	"encoding/json"
	"fmt"

	"github.com/google/uuid"
)

const (
	// SilencePromptName precedes and follows the code playback so the
	// call does not clip the first or last digit.
	SilencePromptName = "a-10-second-silence.wav"

	lambdaTimeLimitSeconds = "8"

	flowName        = "AccountVerificationFlow"
	flowDescription = "Reads a verification code back to the caller"
)

// DigitPromptNames lists the per-digit recordings uploaded to the voice
// instance, index matching the spoken digit.
var DigitPromptNames = [10]string{
	"0.wav", "1.wav", "2.wav", "3.wav", "4.wav",
	"5.wav", "6.wav", "7.wav", "8.wav", "9.wav",
}

type FlowDocument struct {
	Modules  []Module     `json:"modules"`
	Version  string       `json:"version"`
	Type     string       `json:"type"`
	Start    string       `json:"start"`
	Metadata FlowMetadata `json:"metadata"`
}

type Module struct {
	ID         string         `json:"id"`
	Type       string         `json:"type"`
	Branches   []Branch       `json:"branches"`
	Parameters []Parameter    `json:"parameters"`
	Metadata   ModuleMetadata `json:"metadata"`
	Target     string         `json:"target,omitempty"`
}

type Branch struct {
	Condition  string `json:"condition"`
	Transition string `json:"transition"`
}

type Parameter struct {
	Name         string  `json:"name"`
	Value        string  `json:"value"`
	Namespace    *string `json:"namespace"`
	ResourceName *string `json:"resourceName,omitempty"`
}

type ModuleMetadata struct {
	Position   Position          `json:"position"`
	UseDynamic *bool             `json:"useDynamic,omitempty"`
	PromptName string            `json:"promptName,omitempty"`
	Dynamic    map[string]string `json:"dynamicMetadata,omitempty"`
}

type Position struct {
	X int `json:"x"`
	Y int `json:"y"`
}

type FlowMetadata struct {
	EntryPointPosition Position `json:"entryPointPosition"`
	SnapToGrid         bool     `json:"snapToGrid"`
	Name               string   `json:"name"`
	Description        string   `json:"description"`
	Type               string   `json:"type"`
	Status             string   `json:"status"`
}

// BuildVerificationFlow assembles the call graph: silence, a lambda
// invocation that resolves the four prompts for the active code, the
// four prompt playbacks, trailing silence, disconnect. silencePromptID
// is the instance-local ID of the uploaded silence recording.
func BuildVerificationFlow(functionArn, silencePromptID string) *FlowDocument {
	var (
		startID      = uuid.NewString()
		invokeID     = uuid.NewString()
		prompt1ID    = uuid.NewString()
		prompt2ID    = uuid.NewString()
		prompt3ID    = uuid.NewString()
		prompt4ID    = uuid.NewString()
		tailID       = uuid.NewString()
		disconnectID = uuid.NewString()
	)

	external := "External"
	dynamic := true
	static := false

	promptModule := func(id, value, next string, x int) Module {
		return Module{
			ID:   id,
			Type: "PlayPrompt",
			Branches: []Branch{
				{Condition: "Success", Transition: next},
			},
			Parameters: []Parameter{
				{Name: "AudioPrompt", Value: value, Namespace: &external},
			},
			Metadata: ModuleMetadata{
				Position:   Position{X: x, Y: 16},
				UseDynamic: &dynamic,
			},
		}
	}

	silenceModule := func(id, next string, x, y int) Module {
		name := SilencePromptName

		return Module{
			ID:   id,
			Type: "PlayPrompt",
			Branches: []Branch{
				{Condition: "Success", Transition: next},
			},
			Parameters: []Parameter{
				{Name: "AudioPrompt", Value: silencePromptID, Namespace: nil, ResourceName: &name},
			},
			Metadata: ModuleMetadata{
				Position:   Position{X: x, Y: y},
				UseDynamic: &static,
				PromptName: name,
			},
		}
	}

	return &FlowDocument{
		Modules: []Module{
			silenceModule(startID, invokeID, 120, 242),
			{
				ID:   invokeID,
				Type: "InvokeExternalResource",
				Branches: []Branch{
					{Condition: "Success", Transition: prompt1ID},
					{Condition: "Error", Transition: disconnectID},
				},
				Parameters: []Parameter{
					{Name: "FunctionArn", Value: functionArn},
					{Name: "TimeLimit", Value: lambdaTimeLimitSeconds},
				},
				Metadata: ModuleMetadata{
					Position:   Position{X: 191, Y: 15},
					UseDynamic: &static,
					Dynamic:    map[string]string{},
				},
				Target: "Lambda",
			},
			promptModule(prompt1ID, "prompt1", prompt2ID, 456),
			promptModule(prompt2ID, "prompt2", prompt3ID, 700),
			promptModule(prompt3ID, "prompt3", prompt4ID, 948),
			promptModule(prompt4ID, "prompt4", tailID, 1198),
			silenceModule(tailID, disconnectID, 1395, 268),
			{
				ID:         disconnectID,
				Type:       "Disconnect",
				Branches:   []Branch{},
				Parameters: []Parameter{},
				Metadata:   ModuleMetadata{Position: Position{X: 1442, Y: 22}},
			},
		},
		Version: "1",
		Type:    "contactFlow",
		Start:   startID,
		Metadata: FlowMetadata{
			EntryPointPosition: Position{X: 24, Y: 17},
			Name:               flowName,
			Description:        flowDescription,
			Type:               "contactFlow",
			Status:             "published",
		},
	}
}

func (d *FlowDocument) JSON() (string, error) {
	raw, err := json.Marshal(d)
	if err != nil {
		return "", fmt.Errorf("encoding contact flow: %w", err)
	}

	return string(raw), nil
}
