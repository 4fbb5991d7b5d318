package handler

import (
	"context"
	"net/http"
	"strconv"

	"github.com/hitoshi/readerdigest/internal/apiclient"
	"github.com/hitoshi/readerdigest/internal/digest"
	"github.com/hitoshi/readerdigest/internal/model"
	"github.com/hitoshi/readerdigest/internal/view"
)

// DigestServiceInterface はダイジェストハンドラーが必要とするサービスインターフェース。
type DigestServiceInterface interface {
	ListPublic(ctx context.Context, page int) (*model.DigestList, error)
	Latest(ctx context.Context) ([]model.Digest, error)
	GetPublic(ctx context.Context, id int64) (*model.Digest, error)
	Get(ctx context.Context, id int64) (*model.Digest, error)
	ListOwn(ctx context.Context, userID int64, f digest.AdminFilter) (*model.DigestList, error)
	Count(ctx context.Context, userID int64) (int, error)
	AvailableWeeks(ctx context.Context) ([]model.AvailableWeek, error)
	Generate(ctx context.Context, form *digest.GenerateForm) (*digest.Form, *model.GeneratedDigest, error)
	Create(ctx context.Context, form *digest.Form, publish bool) (*model.Digest, error)
	Update(ctx context.Context, id int64, form *digest.Form, publish bool) (*model.Digest, error)
	Delete(ctx context.Context, id int64) error
}

// DigestHandler はダイジェストの一覧・詳細・生成・編集のHTTPハンドラー。
type DigestHandler struct {
	web     *Web
	service DigestServiceInterface
}

// NewDigestHandler はDigestHandlerを生成する。
func NewDigestHandler(web *Web, service DigestServiceInterface) *DigestHandler {
	return &DigestHandler{web: web, service: service}
}

type digestListData struct {
	Digests []model.Digest
	Pager   view.Pager
}

type digestDetailData struct {
	Digest *model.Digest
	Admin  bool
}

type adminDigestListData struct {
	Digests  []model.Digest
	Pager    view.Pager
	Search   string
	Status   digest.Status
	Statuses []digest.Status
}

type digestGenerateData struct {
	Form  *digest.GenerateForm
	Weeks []model.AvailableWeek
}

type digestFormData struct {
	Form      *digest.Form
	DigestID  int64
	Action    string
	Generated *model.GeneratedDigest
}

var digestStatuses = []digest.Status{digest.StatusAll, digest.StatusPublished, digest.StatusDraft}

// PublicList は公開ダイジェストを一覧表示する。
// GET /public/digests?page=
func (h *DigestHandler) PublicList(w http.ResponseWriter, r *http.Request) {
	list, err := h.service.ListPublic(r.Context(), pageParam(r))
	if err != nil {
		h.web.respondAPIError(w, r, err, "Digests", "/")
		return
	}

	h.web.render(w, r, http.StatusOK, "digests", "Weekly digests", digestListData{
		Digests: list.Digests,
		Pager:   view.NewPager(list.Pagination, "/public/digests", r.URL.Query()),
	})
}

// PublicDetail は公開ダイジェストを表示する。
// GET /digests/{id}
func (h *DigestHandler) PublicDetail(w http.ResponseWriter, r *http.Request) {
	id, ok := idParam(r)
	if !ok {
		h.web.renderMessage(w, r, http.StatusNotFound, "Digest not found", "Digest not found.", "/public/digests")
		return
	}

	d, err := h.service.GetPublic(r.Context(), id)
	if err != nil {
		h.web.respondAPIError(w, r, err, "Digest", "/public/digests")
		return
	}

	h.web.render(w, r, http.StatusOK, "digest", d.Title, digestDetailData{Digest: d})
}

// AdminList はログインユーザーのダイジェストを検索語とステータスで絞り込んで表示する。
// GET /admin/digests?q=&status=&page=
func (h *DigestHandler) AdminList(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	filter := digest.AdminFilter{
		Page:   pageParam(r),
		Search: q.Get("q"),
		Status: digest.ParseStatus(q.Get("status")),
	}

	list, err := h.service.ListOwn(r.Context(), currentUserID(r), filter)
	if err != nil {
		h.web.respondAPIError(w, r, err, "Digests", "/admin")
		return
	}

	h.web.render(w, r, http.StatusOK, "admin_digests", "My digests", adminDigestListData{
		Digests:  list.Digests,
		Pager:    view.NewPager(list.Pagination, "/admin/digests", q),
		Search:   filter.Search,
		Status:   filter.Status,
		Statuses: digestStatuses,
	})
}

// AdminDetail は所有者向けにダイジェストを表示する。
// GET /admin/digests/{id}
func (h *DigestHandler) AdminDetail(w http.ResponseWriter, r *http.Request) {
	d, ok := h.ownedDigest(w, r)
	if !ok {
		return
	}
	h.web.render(w, r, http.StatusOK, "digest", d.Title, digestDetailData{Digest: d, Admin: true})
}

// NewPage は週次ダイジェストの生成フォームを表示する。
// GET /admin/digests/new
func (h *DigestHandler) NewPage(w http.ResponseWriter, r *http.Request) {
	data := digestGenerateData{Form: digest.NewGenerateForm(h.web.now())}

	weeks, err := h.service.AvailableWeeks(r.Context())
	if err != nil {
		if apiclient.IsUnauthenticated(err) {
			h.web.respondAPIError(w, r, err, "Digest", "/admin/digests")
			return
		}
		h.web.renderWithError(w, r, http.StatusOK, "digest_generate", "Generate weekly digest", data,
			"Could not load the weeks with articles. You can still pick dates manually.")
		return
	}
	data.Weeks = weeks
	h.web.render(w, r, http.StatusOK, "digest_generate", "Generate weekly digest", data)
}

// Generate はバックエンドにダイジェストの下書きを生成させ、レビュー画面を表示する。
// 下書きはまだ保存しない。
// POST /admin/digests/generate
func (h *DigestHandler) Generate(w http.ResponseWriter, r *http.Request) {
	form := &digest.GenerateForm{}
	if err := bindForm(r, form); err != nil {
		http.Error(w, "bad request", http.StatusBadRequest)
		return
	}

	reviewForm, generated, err := h.service.Generate(r.Context(), form)
	if err != nil {
		if msg, ok := formError(err); ok {
			weeks, _ := h.service.AvailableWeeks(r.Context())
			h.web.renderWithError(w, r, http.StatusUnprocessableEntity, "digest_generate", "Generate weekly digest",
				digestGenerateData{Form: form, Weeks: weeks}, msg)
			return
		}
		h.web.respondAPIError(w, r, err, "Digest", "/admin/digests/new")
		return
	}

	h.web.render(w, r, http.StatusOK, "digest_form", "Review digest", digestFormData{
		Form:      reviewForm,
		Action:    "/admin/digests",
		Generated: generated,
	})
}

// Create はダイジェストを下書きまたは公開済みとして保存する。
// POST /admin/digests
func (h *DigestHandler) Create(w http.ResponseWriter, r *http.Request) {
	form := &digest.Form{}
	if err := bindForm(r, form); err != nil {
		http.Error(w, "bad request", http.StatusBadRequest)
		return
	}
	publish := isChecked(r.PostForm.Get("publish"))

	d, err := h.service.Create(r.Context(), form, publish)
	if err != nil {
		h.formFailed(w, r, err, digestFormData{Form: form, Action: "/admin/digests"}, "Review digest")
		return
	}

	notice := "digest-created"
	if publish {
		notice = "digest-published"
	}
	http.Redirect(w, r, withNotice(digestAdminPath(d.ID), notice), http.StatusSeeOther)
}

// EditPage はダイジェストの編集フォームを表示する。
// GET /admin/digests/{id}/edit
func (h *DigestHandler) EditPage(w http.ResponseWriter, r *http.Request) {
	d, ok := h.ownedDigest(w, r)
	if !ok {
		return
	}
	h.web.render(w, r, http.StatusOK, "digest_form", "Edit digest", digestFormData{
		Form:     digest.FormFromDigest(d),
		DigestID: d.ID,
		Action:   digestAdminPath(d.ID),
	})
}

// Update はダイジェストを更新する。
// POST /admin/digests/{id}
func (h *DigestHandler) Update(w http.ResponseWriter, r *http.Request) {
	id, ok := idParam(r)
	if !ok {
		h.web.renderMessage(w, r, http.StatusNotFound, "Digest not found", "Digest not found.", "/admin/digests")
		return
	}

	form := &digest.Form{}
	if err := bindForm(r, form); err != nil {
		http.Error(w, "bad request", http.StatusBadRequest)
		return
	}
	publish := isChecked(r.PostForm.Get("publish"))

	if _, err := h.service.Update(r.Context(), id, form, publish); err != nil {
		h.formFailed(w, r, err, digestFormData{Form: form, DigestID: id, Action: digestAdminPath(id)}, "Edit digest")
		return
	}

	notice := "digest-updated"
	if publish {
		notice = "digest-published"
	}
	http.Redirect(w, r, withNotice(digestAdminPath(id), notice), http.StatusSeeOther)
}

// Delete はダイジェストを削除する。
// POST /admin/digests/{id}/delete
func (h *DigestHandler) Delete(w http.ResponseWriter, r *http.Request) {
	id, ok := idParam(r)
	if !ok {
		h.web.renderMessage(w, r, http.StatusNotFound, "Digest not found", "Digest not found.", "/admin/digests")
		return
	}

	if err := h.service.Delete(r.Context(), id); err != nil {
		h.web.respondAPIError(w, r, err, "Digest", "/admin/digests")
		return
	}

	http.Redirect(w, r, withNotice("/admin/digests", "digest-deleted"), http.StatusSeeOther)
}

// ownedDigest はログインユーザーが所有するダイジェストを取得する。
func (h *DigestHandler) ownedDigest(w http.ResponseWriter, r *http.Request) (*model.Digest, bool) {
	id, ok := idParam(r)
	if !ok {
		h.web.renderMessage(w, r, http.StatusNotFound, "Digest not found", "Digest not found.", "/admin/digests")
		return nil, false
	}

	d, err := h.service.Get(r.Context(), id)
	if err != nil {
		h.web.respondAPIError(w, r, err, "Digest", "/admin/digests")
		return nil, false
	}
	// バックエンドも所有者を検証するため、主体が数値でないトークンでは確認を省く
	if uid := currentUserID(r); uid != 0 && d.UserID != uid {
		h.web.renderMessage(w, r, http.StatusForbidden, "Access denied",
			"You do not have permission to view this digest.", "/admin/digests")
		return nil, false
	}
	return d, true
}

func (h *DigestHandler) formFailed(w http.ResponseWriter, r *http.Request, err error, data digestFormData, title string) {
	if msg, ok := formError(err); ok {
		h.web.renderWithError(w, r, http.StatusUnprocessableEntity, "digest_form", title, data, msg)
		return
	}
	h.web.respondAPIError(w, r, err, "Digest", "/admin/digests")
}

func digestAdminPath(id int64) string {
	return "/admin/digests/" + strconv.FormatInt(id, 10)
}

// compile-time interface check
var _ DigestServiceInterface = (*digest.Service)(nil)
