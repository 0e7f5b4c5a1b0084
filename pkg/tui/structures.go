package tui

import (
	"context"
	"fmt"
	"strconv"

	"github.com/charmbracelet/bubbles/table"
	tea "github.com/charmbracelet/bubbletea"

	"github.com/blackcoderx/stepwise/pkg/model"
)

// structureList is the catalog of structures.
type structureList struct {
	pager  pager
	rows   []model.StructureInfo
	loaded bool
	table  table.Model
	err    error
}

type structuresMsg struct {
	page *model.Page[model.StructureInfo]
	err  error
}

func newStructureList() structureList {
	return structureList{table: newTable([]table.Column{
		{Title: "Name", Width: 32},
		{Title: "Fields", Width: 7},
		{Title: "Updated", Width: 17},
	})}
}

func (l structureList) Title() string { return "Structures" }

func (l structureList) Help() string {
	return "enter open • n new • d delete • ←→ page"
}

func (l structureList) Init(s *session) tea.Cmd {
	req := model.PageRequest{Page: l.pager.page, Size: s.pageSize}
	return s.fetch(func(ctx context.Context) tea.Msg {
		page, err := s.client.ListStructures(ctx, req)
		return structuresMsg{page: page, err: err}
	})
}

func (l structureList) Update(s *session, msg tea.Msg) (screen, tea.Cmd) {
	switch msg := msg.(type) {
	case structuresMsg:
		if msg.err != nil {
			l.err = msg.err
			return l, nil
		}
		l.err = nil
		l.loaded = true
		l.rows = msg.page.Rows
		l.pager.total = msg.page.Total
		l.pager.size = s.pageSize
		rows := make([]table.Row, 0, len(l.rows))
		for _, st := range l.rows {
			rows = append(rows, table.Row{st.Name, strconv.Itoa(st.FieldsAmount), st.UpdateDate.Local().Format(dateLayout)})
		}
		l.table.SetRows(rows)
		if l.table.Cursor() >= len(rows) {
			l.table.SetCursor(0)
		}
		return l, nil

	case savedMsg:
		if msg.err == nil {
			return l, l.Init(s)
		}
		return l, nil

	case tea.KeyMsg:
		key := msg.String()
		if l.pager.turn(key) {
			return l, l.Init(s)
		}
		i := selected(l.table, len(l.rows))
		switch key {
		case "enter":
			if i >= 0 {
				return l, push(newStructureDetail(l.rows[i].ID, l.rows[i].Name))
			}
			return l, nil
		case "n":
			return l, push(structureForm("New structure", nil, func(ctx context.Context, w model.StructureWrite) error {
				_, err := s.client.CreateStructure(ctx, w)
				return err
			}))
		case "d":
			if i >= 0 {
				id := l.rows[i].ID
				return l, push(confirmForm("Delete structure",
					fmt.Sprintf("Delete %q? Steps using it lose their field bindings.", l.rows[i].Name),
					func(ctx context.Context) (screen, error) {
						return nil, s.client.DeleteStructure(ctx, id)
					}))
			}
			return l, nil
		}
	}

	var cmd tea.Cmd
	l.table, cmd = l.table.Update(msg)
	return l, cmd
}

func (l structureList) View(width, height int) string {
	if l.err != nil {
		return ErrorStyle.Render("Could not load structures: " + errorText(l.err))
	}
	if !l.loaded {
		return HelpStyle.Render("Loading structures...")
	}
	if len(l.rows) == 0 {
		return HelpStyle.Render("No structures yet. Press n to create one.")
	}
	return sized(l.table, height-2).View() + "\n" + HelpStyle.Render(l.pager.String())
}

// structureDetail shows and edits the fields of one structure.
type structureDetail struct {
	id        string
	name      string
	structure *model.Structure
	table     table.Model
	err       error
}

type structureMsg struct {
	structure *model.Structure
	err       error
}

func newStructureDetail(id, name string) structureDetail {
	return structureDetail{
		id:   id,
		name: name,
		table: newTable([]table.Column{
			{Title: "Field", Width: 32},
			{Title: "Type", Width: 10},
		}),
	}
}

func (d structureDetail) Title() string { return d.name }

func (d structureDetail) Help() string {
	return "n add field • e edit field • d delete field • r edit structure"
}

func (d structureDetail) Init(s *session) tea.Cmd {
	id := d.id
	return s.fetch(func(ctx context.Context) tea.Msg {
		st, err := s.client.GetStructure(ctx, id)
		return structureMsg{structure: st, err: err}
	})
}

func (d structureDetail) Update(s *session, msg tea.Msg) (screen, tea.Cmd) {
	switch msg := msg.(type) {
	case structureMsg:
		if msg.err != nil {
			d.err = msg.err
			return d, nil
		}
		d.err = nil
		d.structure = msg.structure
		d.name = msg.structure.Name
		rows := make([]table.Row, 0, len(msg.structure.Fields))
		for _, f := range msg.structure.Fields {
			rows = append(rows, table.Row{f.Name, string(f.Type)})
		}
		d.table.SetRows(rows)
		if d.table.Cursor() >= len(rows) {
			d.table.SetCursor(0)
		}
		return d, nil

	case savedMsg:
		if msg.err == nil {
			return d, d.Init(s)
		}
		return d, nil

	case tea.KeyMsg:
		if d.structure == nil {
			return d, nil
		}
		st := d.structure
		i := selected(d.table, len(st.Fields))
		switch msg.String() {
		case "r":
			return d, push(structureForm("Edit structure", st, func(ctx context.Context, w model.StructureWrite) error {
				_, err := s.client.UpdateStructure(ctx, st.ID, w)
				return err
			}))
		case "n":
			return d, push(structureFieldForm("New field", nil, func(ctx context.Context, w model.StructureFieldWrite) error {
				_, err := s.client.CreateStructureField(ctx, st.ID, w)
				return err
			}))
		case "e", "enter":
			if i < 0 {
				return d, nil
			}
			f := st.Fields[i]
			return d, push(structureFieldForm("Edit field", &f, func(ctx context.Context, w model.StructureFieldWrite) error {
				_, err := s.client.UpdateStructureField(ctx, f.ID, w)
				return err
			}))
		case "d":
			if i < 0 {
				return d, nil
			}
			f := st.Fields[i]
			return d, push(confirmForm("Delete field", fmt.Sprintf("Delete field %q?", f.Name),
				func(ctx context.Context) (screen, error) {
					return nil, s.client.DeleteStructureField(ctx, f.ID)
				}))
		}
	}

	var cmd tea.Cmd
	d.table, cmd = d.table.Update(msg)
	return d, cmd
}

func (d structureDetail) View(width, height int) string {
	if d.err != nil {
		return ErrorStyle.Render("Could not load structure: " + errorText(d.err))
	}
	if d.structure == nil {
		return HelpStyle.Render("Loading structure...")
	}
	head := TitleStyle.Render(d.structure.Name)
	if d.structure.Description != "" {
		head += "\n" + TextStyle.Render(d.structure.Description)
	}
	if len(d.structure.Fields) == 0 {
		return head + "\n\n" + HelpStyle.Render("No fields. Press n to add one.")
	}
	return head + "\n\n" + sized(d.table, height-4).View()
}
