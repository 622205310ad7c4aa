package server

import (
	"encoding/json"
	"errors"
	"fmt"
	"maps"
	"net/http"
	"slices"
	"strings"
	"time"

	"github.com/araddon/dateparse"
	"github.com/gorilla/mux"

	"github.com/Paintersrp/weave/internal/note"
	"github.com/Paintersrp/weave/internal/render"
)

const maxBodyBytes = 1 << 20

var errBadRequest = errors.New("bad request")

type createNoteRequest struct {
	Title   string `json:"title"   validate:"required,max=512"`
	Content string `json:"content"`
	Folder  string `json:"folder"  validate:"max=1024"`
}

type updateNoteRequest struct {
	Title   *string `json:"title"   validate:"omitempty,max=512"`
	Content *string `json:"content"`
	Folder  *string `json:"folder"  validate:"omitempty,max=1024"`
}

type moveNoteRequest struct {
	Folder string `json:"folder" validate:"max=1024"`
}

type renameFolderRequest struct {
	Path    string `json:"path"    validate:"required"`
	NewName string `json:"newName" validate:"required,excludes=/"`
}

type moveFolderRequest struct {
	DraggedPath string `json:"draggedPath" validate:"required"`
	TargetPath  string `json:"targetPath"`
}

// noteView is a note with its backlinks populated.
type noteView struct {
	note.Note
	Backlinks []note.Ref       `json:"backlinks"`
	HTML      string           `json:"html,omitempty"`
	Outline   []render.Heading `json:"outline,omitempty"`
}

type folderDeleted struct {
	Path    string   `json:"path"`
	Deleted []string `json:"deleted"`
}

func (s *Server) decode(w http.ResponseWriter, r *http.Request, dst any) error {
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	if err := dec.Decode(dst); err != nil {
		return fmt.Errorf("%w: malformed JSON body: %v", errBadRequest, err)
	}
	if err := s.validate.Struct(dst); err != nil {
		return err
	}
	return nil
}

func (s *Server) handleGraph(w http.ResponseWriter, r *http.Request) {
	scope := note.ParseScope(r.URL.Query().Get("folder"))
	g, err := s.notes.Graph(r.Context(), ownerFrom(r.Context()), scope)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	ok(w, http.StatusOK, g)
}

func (s *Server) handleListNotes(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	order, err := note.ParseSort(q.Get("sortBy"), q.Get("sortOrder"))
	if err != nil {
		s.fail(w, r, err)
		return
	}

	f := note.Filter{
		Owner: ownerFrom(r.Context()),
		Scope: note.ParseScope(q.Get("folder")),
		Sort:  order,
	}
	if raw := strings.TrimSpace(q.Get("since")); raw != "" {
		since, err := dateparse.ParseIn(raw, time.UTC)
		if err != nil {
			s.fail(w, r, fmt.Errorf("%w: cannot parse since %q", note.ErrInvalid, raw))
			return
		}
		f.UpdatedSince = since.UTC()
	}

	list, err := s.notes.List(r.Context(), f)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	ok(w, http.StatusOK, list)
}

func (s *Server) handleCreateNote(w http.ResponseWriter, r *http.Request) {
	var req createNoteRequest
	if err := s.decode(w, r, &req); err != nil {
		s.fail(w, r, err)
		return
	}
	n, err := s.notes.Create(r.Context(), ownerFrom(r.Context()), note.Draft{
		Title:   req.Title,
		Content: req.Content,
		Folder:  req.Folder,
	})
	if err != nil {
		s.fail(w, r, err)
		return
	}
	ok(w, http.StatusCreated, n)
}

func (s *Server) handleGetNote(w http.ResponseWriter, r *http.Request) {
	owner := ownerFrom(r.Context())
	n, refs, err := s.notes.GetWithBacklinks(r.Context(), owner, mux.Vars(r)["id"])
	if err != nil {
		s.fail(w, r, err)
		return
	}

	view := noteView{Note: n, Backlinks: refs}
	if strings.EqualFold(r.URL.Query().Get("render"), "html") {
		p, err := s.preview(r, owner, n)
		if err != nil {
			s.fail(w, r, err)
			return
		}
		view.HTML, view.Outline = p.HTML, p.Outline
	}
	ok(w, http.StatusOK, view)
}

type preview struct {
	HTML    string
	Outline []render.Heading
}

// preview renders n as HTML. Results are cached per note version and per set
// of resolved link targets, so a renamed or deleted target busts the entry.
func (s *Server) preview(r *http.Request, owner string, n note.Note) (preview, error) {
	targets, err := s.notes.LinkTargets(r.Context(), owner, n.ID, n.Content)
	if err != nil {
		return preview{}, err
	}

	key := previewKey(owner, n, targets)
	if p, hit := s.previews.Get(key); hit {
		return p, nil
	}

	html, err := render.HTML(n.Content, func(title string) (string, bool) {
		id, found := targets[note.TitleKey(title)]
		return id, found
	})
	if err != nil {
		return preview{}, err
	}
	p := preview{HTML: html, Outline: render.Outline(n.Content)}
	s.previews.Put(key, p)
	return p, nil
}

func previewKey(owner string, n note.Note, targets map[string]string) string {
	var b strings.Builder
	fmt.Fprintf(&b, "%s\x00%s\x00%d", owner, n.ID, n.UpdatedAt.UnixNano())
	for _, title := range slices.Sorted(maps.Keys(targets)) {
		b.WriteString("\x00" + title + "=" + targets[title])
	}
	return b.String()
}

func (s *Server) handleUpdateNote(w http.ResponseWriter, r *http.Request) {
	var req updateNoteRequest
	if err := s.decode(w, r, &req); err != nil {
		s.fail(w, r, err)
		return
	}
	n, err := s.notes.Update(r.Context(), ownerFrom(r.Context()), mux.Vars(r)["id"], note.Update{
		Title:   req.Title,
		Content: req.Content,
		Folder:  req.Folder,
	})
	if err != nil {
		s.fail(w, r, err)
		return
	}
	ok(w, http.StatusOK, n)
}

func (s *Server) handleDeleteNote(w http.ResponseWriter, r *http.Request) {
	id := mux.Vars(r)["id"]
	if err := s.notes.Delete(r.Context(), ownerFrom(r.Context()), id); err != nil {
		s.fail(w, r, err)
		return
	}
	ok(w, http.StatusOK, map[string]string{"id": id})
}

func (s *Server) handleMoveNote(w http.ResponseWriter, r *http.Request) {
	var req moveNoteRequest
	if err := s.decode(w, r, &req); err != nil {
		s.fail(w, r, err)
		return
	}
	n, err := s.notes.Move(r.Context(), ownerFrom(r.Context()), mux.Vars(r)["id"], note.Destination(req.Folder))
	if err != nil {
		s.fail(w, r, err)
		return
	}
	ok(w, http.StatusOK, n)
}

func (s *Server) handleRenameFolder(w http.ResponseWriter, r *http.Request) {
	var req renameFolderRequest
	if err := s.decode(w, r, &req); err != nil {
		s.fail(w, r, err)
		return
	}
	change, err := s.notes.RenameFolder(r.Context(), ownerFrom(r.Context()), req.Path, req.NewName)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	ok(w, http.StatusOK, change)
}

func (s *Server) handleMoveFolder(w http.ResponseWriter, r *http.Request) {
	var req moveFolderRequest
	if err := s.decode(w, r, &req); err != nil {
		s.fail(w, r, err)
		return
	}
	change, err := s.notes.MoveFolder(r.Context(), ownerFrom(r.Context()), req.DraggedPath, note.Destination(req.TargetPath))
	if err != nil {
		s.fail(w, r, err)
		return
	}
	ok(w, http.StatusOK, change)
}

func (s *Server) handleDeleteFolder(w http.ResponseWriter, r *http.Request) {
	path := r.URL.Query().Get("path")
	ids, err := s.notes.DeleteFolder(r.Context(), ownerFrom(r.Context()), path)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	ok(w, http.StatusOK, folderDeleted{Path: note.NormalizeFolder(path), Deleted: ids})
}
