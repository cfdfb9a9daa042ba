package commands

import (
	"encoding/json"
	"io"
	"os"

	"git.home.luguber.info/inful/apierror/internal/apierror"
	"git.home.luguber.info/inful/apierror/internal/classify"
	ferrors "git.home.luguber.info/inful/apierror/internal/foundation/errors"
	"git.home.luguber.info/inful/apierror/internal/retry"
)

// ClassifyCmd implements the 'classify' command.
type ClassifyCmd struct {
	File    string `arg:"" optional:"" help:"Failure document (JSON); reads stdin when omitted or '-'"`
	Attempt int    `short:"n" help:"Attempt number used for retry advice" default:"1"`
}

// ClassifyResult is printed by the classify command.
type ClassifyResult struct {
	Response *apierror.Response `json:"response"`
	Severity apierror.Severity  `json:"severity"`
	Key      string             `json:"key"`
	Retry    retry.Advice       `json:"retry"`
}

func (c *ClassifyCmd) Run(g *Global, _ *CLI) error {
	data, err := c.read(g)
	if err != nil {
		return err
	}
	result, err := RunClassify(data, c.Attempt, retry.DefaultPolicy())
	if err != nil {
		return err
	}
	enc := json.NewEncoder(g.out())
	enc.SetIndent("", "  ")
	return enc.Encode(result)
}

func (c *ClassifyCmd) read(g *Global) ([]byte, error) {
	if c.File == "" || c.File == "-" {
		data, err := io.ReadAll(g.in())
		if err != nil {
			return nil, ferrors.WrapError(err, ferrors.CategoryRuntime, "failed to read stdin").Build()
		}
		return data, nil
	}
	data, err := os.ReadFile(c.File)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, ferrors.NotFoundError("failure document not found").
				WithContext("path", c.File).
				Build()
		}
		return nil, ferrors.WrapError(err, ferrors.CategoryRuntime, "failed to read failure document").
			WithContext("path", c.File).
			Build()
	}
	return data, nil
}

// RunClassify decodes data and classifies it, attaching retry advice for attempt.
func RunClassify(data []byte, attempt int, policy retry.Policy) (*ClassifyResult, error) {
	if attempt < 1 {
		return nil, ferrors.ValidationError("attempt must be at least 1").
			WithContext("attempt", attempt).
			Build()
	}
	raw, err := classify.Decode(data)
	if err != nil {
		return nil, err
	}
	resp := classify.Classify(raw)
	return &ClassifyResult{
		Response: resp,
		Severity: resp.Severity(),
		Key:      resp.Key(),
		Retry:    policy.Advise(resp, attempt),
	}, nil
}
