package adminclient

import (
	"context"
	"encoding/base64"
	"errors"
	"maps"
	"sync"

	"atelier/internal/models"

	"github.com/gabriel-vasile/mimetype"
)

// State is the lifecycle position of an admin form.
type State int

const (
	Closed State = iota
	OpenCreate
	OpenEdit
	Submitting
)

func (s State) String() string {
	switch s {
	case Closed:
		return "closed"
	case OpenCreate:
		return "open-create"
	case OpenEdit:
		return "open-edit"
	case Submitting:
		return "submitting"
	default:
		return "unknown"
	}
}

var (
	ErrNotOpen        = errors.New("form is not open")
	ErrAlreadyOpen    = errors.New("form is already open")
	ErrSubmitInFlight = errors.New("a submission is already in progress")
	ErrUnknownRecord  = errors.New("record is not in the local list")
)

// Backend is the remote collection a Workflow reconciles against.
// *Resource satisfies it.
type Backend[T any] interface {
	List(ctx context.Context) ([]T, error)
	Create(ctx context.Context, form Form) (*T, error)
	Update(ctx context.Context, id string, form Form) (*T, error)
	Delete(ctx context.Context, id string) error
}

// StagedFile is a file chosen in the form but not yet uploaded.
type StagedFile struct {
	Upload
	// Preview is a data URL, empty until the preview has been generated.
	Preview string
}

// Workflow drives one entity's admin form: open, edit fields, stage files,
// cancel or submit, and merge the server's answer into the local list.
// It is safe for concurrent use.
type Workflow[T any, PT models.EntityPtr[T]] struct {
	backend Backend[T]

	mu     sync.Mutex
	items  []T
	state  State
	editID string
	fields map[string]string
	staged []StagedFile
	err    error
	// generation invalidates previews started before the last open or cancel.
	generation int
	previews   sync.WaitGroup
}

// NewWorkflow creates a closed Workflow with an empty list.
func NewWorkflow[T any, PT models.EntityPtr[T]](backend Backend[T]) *Workflow[T, PT] {
	return &Workflow[T, PT]{backend: backend}
}

// Load replaces the local list with the server's.
func (w *Workflow[T, PT]) Load(ctx context.Context) error {
	items, err := w.backend.List(ctx)
	if err != nil {
		return err
	}
	w.mu.Lock()
	defer w.mu.Unlock()
	w.items = items
	return nil
}

// Items returns a copy of the local list.
func (w *Workflow[T, PT]) Items() []T {
	w.mu.Lock()
	defer w.mu.Unlock()
	return append([]T(nil), w.items...)
}

func (w *Workflow[T, PT]) State() State {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.state
}

// Err is the error of the last failed submit, shown inline in the form.
func (w *Workflow[T, PT]) Err() error {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.err
}

// Fields returns a copy of the form's field values.
func (w *Workflow[T, PT]) Fields() map[string]string {
	w.mu.Lock()
	defer w.mu.Unlock()
	return maps.Clone(w.fields)
}

// Staged returns a copy of the staged files with their previews so far.
func (w *Workflow[T, PT]) Staged() []StagedFile {
	w.mu.Lock()
	defer w.mu.Unlock()
	return append([]StagedFile(nil), w.staged...)
}

// OpenCreate opens an empty form for a new record.
func (w *Workflow[T, PT]) OpenCreate() error {
	return w.open(OpenCreate, "", nil)
}

// OpenEdit opens the form for the record id, prefilled with fields.
func (w *Workflow[T, PT]) OpenEdit(id string, fields map[string]string) error {
	w.mu.Lock()
	found := w.indexOf(id) >= 0
	w.mu.Unlock()
	if !found {
		return ErrUnknownRecord
	}
	return w.open(OpenEdit, id, fields)
}

func (w *Workflow[T, PT]) open(mode State, id string, fields map[string]string) error {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.state != Closed {
		return ErrAlreadyOpen
	}
	w.reset()
	w.state = mode
	w.editID = id
	w.fields = maps.Clone(fields)
	if w.fields == nil {
		w.fields = make(map[string]string)
	}
	return nil
}

// SetField changes one form value.
func (w *Workflow[T, PT]) SetField(name, value string) error {
	w.mu.Lock()
	defer w.mu.Unlock()
	if !w.isOpen() {
		return ErrNotOpen
	}
	w.fields[name] = value
	return nil
}

// StageFile adds a file to the form and starts building its preview in the
// background. Nothing is sent until Submit. The returned channel yields the
// preview data URL once, or is closed without a value if the form was
// cancelled first.
func (w *Workflow[T, PT]) StageFile(field, name string, data []byte) (<-chan string, error) {
	w.mu.Lock()
	defer w.mu.Unlock()
	if !w.isOpen() {
		return nil, ErrNotOpen
	}

	idx := len(w.staged)
	w.staged = append(w.staged, StagedFile{Upload: Upload{Field: field, Name: name, Data: data}})
	gen := w.generation

	done := make(chan string, 1)
	w.previews.Add(1)
	go func() {
		defer w.previews.Done()
		defer close(done)
		preview := dataURL(data)

		w.mu.Lock()
		defer w.mu.Unlock()
		if w.generation != gen || idx >= len(w.staged) {
			return
		}
		w.staged[idx].Preview = preview
		done <- preview
	}()
	return done, nil
}

// ClearFiles unstages every file of field, e.g. when a single image is
// picked again.
func (w *Workflow[T, PT]) ClearFiles(field string) error {
	w.mu.Lock()
	defer w.mu.Unlock()
	if !w.isOpen() {
		return ErrNotOpen
	}
	kept := w.staged[:0:0]
	for _, f := range w.staged {
		if f.Field != field {
			kept = append(kept, f)
		}
	}
	w.staged = kept
	// Indexes held by pending previews are no longer valid.
	w.generation++
	return nil
}

// WaitPreviews blocks until every started preview has finished.
func (w *Workflow[T, PT]) WaitPreviews() {
	w.previews.Wait()
}

// Cancel closes the form, dropping fields and staged files. The server is
// not contacted. Cancelling while a submit is in flight is refused.
func (w *Workflow[T, PT]) Cancel() error {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.state == Submitting {
		return ErrSubmitInFlight
	}
	w.reset()
	return nil
}

// Submit sends the form as a create or update depending on how it was
// opened. On success the returned record is merged into the local list and
// the form closes. On failure the form stays open with its input and the
// error is kept for display; the list is untouched.
func (w *Workflow[T, PT]) Submit(ctx context.Context) (*T, error) {
	w.mu.Lock()
	mode := w.state
	switch mode {
	case Submitting:
		w.mu.Unlock()
		return nil, ErrSubmitInFlight
	case Closed:
		w.mu.Unlock()
		return nil, ErrNotOpen
	}
	w.state = Submitting
	w.err = nil
	id := w.editID
	form := Form{Fields: maps.Clone(w.fields)}
	for _, f := range w.staged {
		form.Files = append(form.Files, f.Upload)
	}
	w.mu.Unlock()

	var (
		saved *T
		err   error
	)
	if mode == OpenEdit {
		saved, err = w.backend.Update(ctx, id, form)
	} else {
		saved, err = w.backend.Create(ctx, form)
	}

	w.mu.Lock()
	defer w.mu.Unlock()
	if err != nil {
		w.state = mode
		w.err = err
		return nil, err
	}
	w.reconcile(*saved)
	w.reset()
	return saved, nil
}

// Delete removes id on the server and then from the local list.
func (w *Workflow[T, PT]) Delete(ctx context.Context, id string) error {
	if err := w.backend.Delete(ctx, id); err != nil {
		return err
	}
	w.mu.Lock()
	defer w.mu.Unlock()
	if i := w.indexOf(id); i >= 0 {
		w.items = append(w.items[:i:i], w.items[i+1:]...)
	}
	return nil
}

func (w *Workflow[T, PT]) reconcile(saved T) {
	if i := w.indexOf(PT(&saved).GetID()); i >= 0 {
		w.items[i] = saved
		return
	}
	w.items = append(w.items, saved)
}

func (w *Workflow[T, PT]) indexOf(id string) int {
	for i := range w.items {
		if PT(&w.items[i]).GetID() == id {
			return i
		}
	}
	return -1
}

func (w *Workflow[T, PT]) isOpen() bool {
	return w.state == OpenCreate || w.state == OpenEdit
}

// reset must be called with mu held.
func (w *Workflow[T, PT]) reset() {
	w.state = Closed
	w.editID = ""
	w.fields = nil
	w.staged = nil
	w.err = nil
	w.generation++
}

func dataURL(data []byte) string {
	mt := mimetype.Detect(data)
	return "data:" + mt.String() + ";base64," + base64.StdEncoding.EncodeToString(data)
}
