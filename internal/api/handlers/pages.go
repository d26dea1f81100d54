// pages.go — HTML-страницы Secure Transfer: форма загрузки
// и страница файла со ссылкой на скачивание.
package handlers

import (
	"html/template"
	"log/slog"
	"net/http"

	"github.com/primex/secure-transfer/internal/api/errors"
	"github.com/primex/secure-transfer/internal/service"
)

// indexTemplate — страница загрузки с inline-формой.
var indexTemplate = template.Must(template.New("index").Parse(`<!DOCTYPE html>
<html>
  <head>
    <title>Secure Transfer</title>
    <style>
      body { font-family: Arial, sans-serif; max-width: 700px; margin: 40px auto; padding: 0 20px; }
      h1 { margin-bottom: 0.3rem; }
      form { border: 1px solid #ddd; padding: 16px; border-radius: 8px; }
      label { display: block; margin: 8px 0 4px; }
      input[type="file"] { margin-bottom: 12px; }
      button { padding: 8px 16px; border: none; background: #2563eb; color: #fff; border-radius: 4px; cursor: pointer; }
      button:hover { background: #1d4ed8; }
      code { background: #f5f5f5; padding: 2px 4px; border-radius: 4px; }
      .tip { color: #555; font-size: 0.95rem; margin-top: 8px; }
    </style>
  </head>
  <body>
    <h1>Secure Transfer</h1>
    <p>Загрузите файл и получите ссылку. Срок хранения по умолчанию — {{.DefaultExpireDays}} дней.</p>
    <form id="upload-form">
      <label>Файл</label>
      <input type="file" name="file" required />
      <label>Срок хранения в днях (опционально, по умолчанию {{.DefaultExpireDays}})</label>
      <input type="number" name="expire_days" min="1" placeholder="{{.DefaultExpireDays}}" />
      <br /><br />
      <button type="submit">Загрузить</button>
    </form>
    <div id="result" class="tip"></div>
    <script>
      const form = document.getElementById('upload-form');
      form.addEventListener('submit', async (e) => {
        e.preventDefault();
        const fileInput = form.querySelector('input[type="file"]');
        if (!fileInput.files.length) return;
        const data = new FormData(form);
        const res = await fetch('/upload', { method: 'POST', body: data });
        const out = document.getElementById('result');
        if (!res.ok) {
          const err = await res.json();
          out.textContent = 'Ошибка: ' + (err.error ? err.error.message : res.statusText);
          return;
        }
        const json = await res.json();
        const viewLink = json.view_url.startsWith('http') ? json.view_url : window.location.origin + json.view_url;
        out.innerHTML = 'File ID: <code>' + json.file_id + '</code><br/>' +
          'Ссылка: <a href="' + viewLink + '">' + viewLink + '</a><br/>' +
          'Истекает: ' + json.expires_at;
      });
    </script>
    <p class="tip">Прямой API: POST <code>/upload</code> (поле <code>file</code>),
      GET <code>/file/&lt;file_id&gt;</code> — страница файла,
      GET <code>/download/&lt;file_id&gt;</code> — скачивание.</p>
  </body>
</html>
`))

// fileTemplate — страница файла с кнопкой скачивания.
var fileTemplate = template.Must(template.New("file").Parse(`<!DOCTYPE html>
<html>
  <head>
    <title>Скачать {{.Filename}}</title>
    <style>
      body { font-family: Arial, sans-serif; max-width: 600px; margin: 60px auto; padding: 0 20px; text-align: center; }
      h1 { margin-bottom: 0.5rem; }
      p { color: #444; }
      a.button {
        display: inline-block;
        margin-top: 20px;
        padding: 10px 18px;
        background: #2563eb;
        color: #fff;
        border-radius: 6px;
        text-decoration: none;
        font-weight: 600;
      }
      a.button:hover { background: #1d4ed8; }
    </style>
  </head>
  <body>
    <h1>{{.Filename}}</h1>
    <p>Истекает: {{.ExpiresText}}</p>
    <a class="button" href="{{.DownloadLink}}">Скачать</a>
  </body>
</html>
`))

// PagesHandler — обработчик HTML-страниц.
type PagesHandler struct {
	downloadSvc       *service.DownloadService
	defaultExpireDays int
	logger            *slog.Logger
}

// NewPagesHandler создаёт обработчик HTML-страниц.
func NewPagesHandler(downloadSvc *service.DownloadService, defaultExpireDays int, logger *slog.Logger) *PagesHandler {
	return &PagesHandler{
		downloadSvc:       downloadSvc,
		defaultExpireDays: defaultExpireDays,
		logger:            logger.With(slog.String("component", "pages")),
	}
}

// Index обрабатывает GET / — страница загрузки.
func (h *PagesHandler) Index(w http.ResponseWriter, _ *http.Request) {
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	if err := indexTemplate.Execute(w, map[string]any{
		"DefaultExpireDays": h.defaultExpireDays,
	}); err != nil {
		h.logger.Error("Ошибка рендеринга страницы загрузки", slog.String("error", err.Error()))
	}
}

// FilePage обрабатывает GET /file/{file_id} — страница файла.
// Семантика 404/410 совпадает со скачиванием.
func (h *PagesHandler) FilePage(w http.ResponseWriter, _ *http.Request, fileID string) {
	rec, dlErr := h.downloadSvc.Resolve(fileID)
	if dlErr != nil {
		errors.WriteError(w, dlErr.StatusCode, dlErr.Code, dlErr.Message)
		return
	}

	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	if err := fileTemplate.Execute(w, map[string]any{
		"Filename":     rec.OriginalFilename,
		"ExpiresText":  rec.ExpiresAt.UTC().Format("2006-01-02 15:04 UTC"),
		"DownloadLink": "/download/" + rec.FileID,
	}); err != nil {
		h.logger.Error("Ошибка рендеринга страницы файла",
			slog.String("file_id", fileID),
			slog.String("error", err.Error()),
		)
	}
}
