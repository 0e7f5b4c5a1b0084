// Package transfer moves scenarios between a backend and bundle files.
package transfer

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/blackcoderx/stepwise/pkg/binding"
	"github.com/blackcoderx/stepwise/pkg/client"
	"github.com/blackcoderx/stepwise/pkg/model"
	"github.com/blackcoderx/stepwise/pkg/storage"
)

// Export reads a scenario with its steps, parameters and the structures the
// steps use, and returns it as a bundle.
func Export(ctx context.Context, c *client.Client, scenarioID string) (*storage.Bundle, error) {
	sc, err := c.GetScenario(ctx, scenarioID)
	if err != nil {
		return nil, fmt.Errorf("failed to load scenario: %w", err)
	}
	params, err := c.ListParameters(ctx, scenarioID)
	if err != nil {
		return nil, fmt.Errorf("failed to load parameters: %w", err)
	}

	b := &storage.Bundle{Version: storage.BundleVersion, Scenario: sc.Name}
	names := make(map[string]string, len(params))
	for _, p := range params {
		names[p.ID] = p.Name
		b.Parameters = append(b.Parameters, storage.BundleParameter{Name: p.Name, InitialValue: p.InitialValue})
	}

	seen := make(map[string]bool)
	addStructure := func(ref *model.StructureRef) (string, error) {
		if ref == nil {
			return "", nil
		}
		if !seen[ref.ID] {
			st, err := c.GetStructure(ctx, ref.ID)
			if err != nil {
				return "", fmt.Errorf("failed to load structure %s: %w", ref.Name, err)
			}
			bs := storage.BundleStructure{Name: st.Name, Description: st.Description}
			for _, f := range st.Fields {
				bs.Fields = append(bs.Fields, storage.BundleField{Name: f.Name, Type: f.Type})
			}
			b.Structures = append(b.Structures, bs)
			seen[ref.ID] = true
		}
		return ref.Name, nil
	}

	for _, info := range sc.Steps {
		step, err := c.GetStep(ctx, info.ID)
		if err != nil {
			return nil, fmt.Errorf("failed to load step %q: %w", info.Title, err)
		}
		bs := storage.BundleStep{
			Title: step.Title,
			Request: storage.BundleRequest{
				Method:   step.Request.Method,
				Endpoint: step.Request.Endpoint,
			},
			Response: storage.BundleResponse{HTTPStatus: step.Response.HTTPStatus},
		}
		if bs.Request.Structure, err = addStructure(step.Request.Structure); err != nil {
			return nil, err
		}
		if bs.Response.Structure, err = addStructure(step.Response.Structure); err != nil {
			return nil, err
		}
		for _, f := range step.Request.Fields {
			if f.Value == nil || f.Value.ValueType() == model.ValueNull {
				continue
			}
			if bs.Request.Fields == nil {
				bs.Request.Fields = make(map[string]storage.RequestBinding)
			}
			bs.Request.Fields[f.Name] = storage.RequestBindingOf(f.Value, names)
		}
		for _, f := range step.Response.Fields {
			if (f.Assertion == nil || f.Assertion.Mode() == model.AssertionNull) && f.Capture == "" {
				continue
			}
			if bs.Response.Fields == nil {
				bs.Response.Fields = make(map[string]storage.ResponseBinding)
			}
			bs.Response.Fields[f.Name] = storage.ResponseBindingOf(f, names)
		}
		b.Steps = append(b.Steps, bs)
	}
	return b, nil
}

// Importer creates bundles on a backend.
type Importer struct {
	client *client.Client
	logger *slog.Logger
}

// NewImporter returns an Importer writing through c.
func NewImporter(c *client.Client, logger *slog.Logger) *Importer {
	if logger == nil {
		logger = slog.Default()
	}
	return &Importer{client: c, logger: logger}
}

// Import creates the bundle's scenario. Structures that already exist by name
// are reused when their fields match and rejected otherwise. Import stops at
// the first failed write; what was created up to then stays.
func (im *Importer) Import(ctx context.Context, b *storage.Bundle) (*model.Scenario, error) {
	if err := b.Validate(); err != nil {
		return nil, err
	}
	structures, err := im.ensureStructures(ctx, b)
	if err != nil {
		return nil, err
	}

	sc, err := im.client.CreateScenario(ctx, model.ScenarioWrite{Name: model.Ptr(b.Scenario)})
	if err != nil {
		return nil, fmt.Errorf("failed to create scenario: %w", err)
	}
	log := im.logger.With("scenario", sc.Name)

	ids := make(map[string]string, len(b.Parameters))
	var params []model.Parameter
	for _, p := range b.Parameters {
		created, err := im.client.CreateParameter(ctx, sc.ID, model.ParameterWrite{
			Name:         model.Ptr(p.Name),
			InitialValue: model.Ptr(p.InitialValue),
		})
		if err != nil {
			return nil, fmt.Errorf("failed to create parameter %q: %w", p.Name, err)
		}
		ids[p.Name] = created.ID
		params = append(params, *created)
	}
	set := binding.NewParameterSet(sc.ID, params)

	for _, bs := range b.Steps {
		if err := im.importStep(ctx, sc.ID, bs, structures, ids, set); err != nil {
			return nil, fmt.Errorf("step %q: %w", bs.Title, err)
		}
		log.Debug("step imported", "title", bs.Title)
	}
	log.Info("scenario imported", "steps", len(b.Steps), "parameters", len(params))
	return im.client.GetScenario(ctx, sc.ID)
}

func (im *Importer) ensureStructures(ctx context.Context, b *storage.Bundle) (map[string]string, error) {
	existing := make(map[string]string)
	for page := 0; ; page++ {
		rows, err := im.client.ListStructures(ctx, model.PageRequest{Page: page, Size: 100})
		if err != nil {
			return nil, fmt.Errorf("failed to list structures: %w", err)
		}
		for _, row := range rows.Rows {
			existing[row.Name] = row.ID
		}
		if len(rows.Rows) == 0 || (page+1)*rows.Pagination.Size >= rows.Total {
			break
		}
	}

	out := make(map[string]string, len(b.Structures))
	for _, bs := range b.Structures {
		want := bs.Model()
		if id, ok := existing[bs.Name]; ok {
			st, err := im.client.GetStructure(ctx, id)
			if err != nil {
				return nil, fmt.Errorf("failed to load structure %q: %w", bs.Name, err)
			}
			types := make(map[string]model.DataType, len(st.Fields))
			for _, f := range st.Fields {
				types[f.Name] = f.Type
			}
			if !binding.MatchesStructure(want, types) {
				return nil, fmt.Errorf("structure %q exists with different fields", bs.Name)
			}
			out[bs.Name] = id
			continue
		}

		st, err := im.client.CreateStructure(ctx, model.StructureWrite{Name: model.Ptr(bs.Name), Description: model.Ptr(bs.Description)})
		if err != nil {
			return nil, fmt.Errorf("failed to create structure %q: %w", bs.Name, err)
		}
		for _, f := range bs.Fields {
			if _, err := im.client.CreateStructureField(ctx, st.ID, model.StructureFieldWrite{Name: model.Ptr(f.Name), Type: model.Ptr(f.Type)}); err != nil {
				return nil, fmt.Errorf("failed to create field %q of %q: %w", f.Name, bs.Name, err)
			}
		}
		out[bs.Name] = st.ID
	}
	return out, nil
}

func (im *Importer) importStep(ctx context.Context, scenarioID string, bs storage.BundleStep, structures, ids map[string]string, set binding.ParameterSet) error {
	step, err := im.client.CreateStep(ctx, scenarioID, model.StepWrite{Title: model.Ptr(bs.Title)})
	if err != nil {
		return err
	}

	reqWrite := model.RequestWrite{Endpoint: model.Ptr(bs.Request.Endpoint)}
	if bs.Request.Method != "" {
		reqWrite.Method = model.Ptr(bs.Request.Method)
	}
	if bs.Request.Structure != "" {
		reqWrite.StructureID = model.Ptr(structures[bs.Request.Structure])
	}
	req, err := im.client.UpdateStepRequest(ctx, step.ID, reqWrite)
	if err != nil {
		return err
	}
	for _, f := range req.Fields {
		rb, ok := bs.Request.Fields[f.Name]
		if !ok {
			continue
		}
		if _, err := im.client.UpdateRequestField(ctx, f, rb.Update(ids), set); err != nil {
			return fmt.Errorf("request field %q: %w", f.Name, err)
		}
	}

	respWrite := model.ResponseWrite{}
	if bs.Response.HTTPStatus != 0 {
		respWrite.HTTPStatus = model.Ptr(bs.Response.HTTPStatus)
	}
	if bs.Response.Structure != "" {
		respWrite.StructureID = model.Ptr(structures[bs.Response.Structure])
	}
	resp, err := im.client.UpdateStepResponse(ctx, step.ID, respWrite)
	if err != nil {
		return err
	}
	for _, f := range resp.Fields {
		rb, ok := bs.Response.Fields[f.Name]
		if !ok {
			continue
		}
		if _, err := im.client.UpdateResponseField(ctx, f, rb.Update(ids), set); err != nil {
			return fmt.Errorf("response field %q: %w", f.Name, err)
		}
	}
	return nil
}
