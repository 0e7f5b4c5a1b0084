package client

import (
	"context"
	"net/http"

	"github.com/blackcoderx/stepwise/pkg/model"
)

// ListStructures returns a page of structures.
func (c *Client) ListStructures(ctx context.Context, p model.PageRequest) (*model.Page[model.StructureInfo], error) {
	var page model.Page[model.StructureInfo]
	if err := c.get(ctx, "/structures", pageQuery(p), &page); err != nil {
		return nil, err
	}
	return &page, nil
}

// GetStructure returns a structure with its fields.
func (c *Client) GetStructure(ctx context.Context, id string) (*model.Structure, error) {
	var s model.Structure
	if err := c.get(ctx, "/structures/"+escape(id), nil, &s); err != nil {
		return nil, err
	}
	return &s, nil
}

// CreateStructure creates a structure.
func (c *Client) CreateStructure(ctx context.Context, w model.StructureWrite) (*model.Structure, error) {
	if w.Name != nil {
		if st := model.CheckName(*w.Name); st != "" {
			return nil, &ValidationError{Status: st, Field: st.Field()}
		}
	}
	var s model.Structure
	if err := c.write(ctx, "structures", http.MethodPost, "/structures", w, &s); err != nil {
		return nil, err
	}
	return &s, nil
}

// UpdateStructure renames or re-describes a structure.
func (c *Client) UpdateStructure(ctx context.Context, id string, w model.StructureWrite) (*model.Structure, error) {
	var s model.Structure
	if err := c.write(ctx, "structure:"+id, http.MethodPatch, "/structures/"+escape(id), w, &s); err != nil {
		return nil, err
	}
	return &s, nil
}

// DeleteStructure deletes a structure.
func (c *Client) DeleteStructure(ctx context.Context, id string) error {
	return c.write(ctx, "structure:"+id, http.MethodDelete, "/structures/"+escape(id), nil, nil)
}

// CreateStructureField adds a field to a structure.
func (c *Client) CreateStructureField(ctx context.Context, structureID string, w model.StructureFieldWrite) (*model.StructureField, error) {
	var f model.StructureField
	if err := c.write(ctx, "structure:"+structureID+":fields", http.MethodPost, "/structures/"+escape(structureID)+"/fields", w, &f); err != nil {
		return nil, err
	}
	return &f, nil
}

// UpdateStructureField renames or retypes a structure field.
func (c *Client) UpdateStructureField(ctx context.Context, fieldID string, w model.StructureFieldWrite) (*model.StructureField, error) {
	var f model.StructureField
	if err := c.write(ctx, "structureField:"+fieldID, http.MethodPatch, "/structureFields/"+escape(fieldID), w, &f); err != nil {
		return nil, err
	}
	return &f, nil
}

// DeleteStructureField removes a structure field.
func (c *Client) DeleteStructureField(ctx context.Context, fieldID string) error {
	return c.write(ctx, "structureField:"+fieldID, http.MethodDelete, "/structureFields/"+escape(fieldID), nil, nil)
}
