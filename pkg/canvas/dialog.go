package canvas

import (
	"errors"
	"fmt"
)

var ErrInvalidTransition = errors.New("invalid dialog transition")

type DialogState string

const (
	DialogClosed           DialogState = "closed"
	DialogEditing          DialogState = "editing"
	DialogConfirmingDelete DialogState = "confirming-delete"
	DialogSaving           DialogState = "saving"
)

// Dialog is the single state machine behind an editor dialog. Subject names what is being edited.
type Dialog struct {
	state   DialogState
	subject string
}

func NewDialog() *Dialog {
	return &Dialog{state: DialogClosed}
}

func (d *Dialog) State() DialogState {
	if d.state == "" {
		return DialogClosed
	}

	return d.state
}

func (d *Dialog) Subject() string {
	return d.subject
}

// IsOpen reports whether the dialog holds focus.
func (d *Dialog) IsOpen() bool {
	return d.State() != DialogClosed
}

func (d *Dialog) transition(to DialogState, from ...DialogState) error {
	current := d.State()
	for _, f := range from {
		if current == f {
			d.state = to
			return nil
		}
	}

	return fmt.Errorf("%w: %s -> %s", ErrInvalidTransition, current, to)
}

// Edit opens the dialog on subject.
func (d *Dialog) Edit(subject string) error {
	if err := d.transition(DialogEditing, DialogClosed); err != nil {
		return err
	}

	d.subject = subject

	return nil
}

// ConfirmDelete asks for delete confirmation of subject, from closed or from the edit form of the same subject.
func (d *Dialog) ConfirmDelete(subject string) error {
	if d.State() == DialogEditing && d.subject != subject {
		return fmt.Errorf("%w: editing %s, asked to delete %s", ErrInvalidTransition, d.subject, subject)
	}

	if err := d.transition(DialogConfirmingDelete, DialogClosed, DialogEditing); err != nil {
		return err
	}

	d.subject = subject

	return nil
}

// Confirm accepts the pending delete and returns its subject.
func (d *Dialog) Confirm() (string, error) {
	if err := d.transition(DialogClosed, DialogConfirmingDelete); err != nil {
		return "", err
	}

	subject := d.subject
	d.subject = ""

	return subject, nil
}

// BeginSave moves an open edit form into saving.
func (d *Dialog) BeginSave() error {
	return d.transition(DialogSaving, DialogEditing)
}

// EndSave closes the dialog after a successful save, or returns to the form on failure so input is kept.
func (d *Dialog) EndSave(saveErr error) error {
	if saveErr != nil {
		return d.transition(DialogEditing, DialogSaving)
	}

	if err := d.transition(DialogClosed, DialogSaving); err != nil {
		return err
	}

	d.subject = ""

	return nil
}

// Cancel closes the dialog. A save in flight cannot be cancelled.
func (d *Dialog) Cancel() error {
	if d.State() == DialogClosed {
		return nil
	}

	if err := d.transition(DialogClosed, DialogEditing, DialogConfirmingDelete); err != nil {
		return err
	}

	d.subject = ""

	return nil
}
