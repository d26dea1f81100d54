package filestore

import (
	"bytes"
	"io"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestNew_CreatesDirectory(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "nested", "storage")

	fs, err := New(dir)
	if err != nil {
		t.Fatalf("Ошибка создания FileStore: %v", err)
	}

	if fs.StorageDir() != dir {
		t.Errorf("StorageDir: хотели %s, получили %s", dir, fs.StorageDir())
	}

	info, err := os.Stat(dir)
	if err != nil {
		t.Fatalf("Директория не создана: %v", err)
	}
	if !info.IsDir() {
		t.Error("Путь хранения не является директорией")
	}
}

func TestSave_RoundTrip(t *testing.T) {
	fs, err := New(t.TempDir())
	if err != nil {
		t.Fatalf("Ошибка создания FileStore: %v", err)
	}

	content := []byte("test file content")
	result, err := fs.Save(bytes.NewReader(content), "file-1", "report.pdf")
	if err != nil {
		t.Fatalf("Ошибка сохранения: %v", err)
	}

	if result.StoragePath != "file-1.pdf" {
		t.Errorf("StoragePath: хотели file-1.pdf, получили %s", result.StoragePath)
	}
	if result.Size != int64(len(content)) {
		t.Errorf("Size: хотели %d, получили %d", len(content), result.Size)
	}

	f, err := fs.Read(result.StoragePath)
	if err != nil {
		t.Fatalf("Ошибка чтения: %v", err)
	}
	defer f.Close()

	got, err := io.ReadAll(f)
	if err != nil {
		t.Fatalf("Ошибка чтения содержимого: %v", err)
	}
	if !bytes.Equal(got, content) {
		t.Errorf("Содержимое не совпадает: хотели %q, получили %q", content, got)
	}
}

func TestSave_NoTempFileLeft(t *testing.T) {
	dir := t.TempDir()
	fs, err := New(dir)
	if err != nil {
		t.Fatalf("Ошибка создания FileStore: %v", err)
	}

	if _, err := fs.Save(strings.NewReader("data"), "file-2", "data.bin"); err != nil {
		t.Fatalf("Ошибка сохранения: %v", err)
	}

	entries, err := os.ReadDir(dir)
	if err != nil {
		t.Fatalf("Ошибка чтения директории: %v", err)
	}
	for _, e := range entries {
		if strings.HasSuffix(e.Name(), ".tmp") {
			t.Errorf("Остался временный файл: %s", e.Name())
		}
	}
}

// errReader возвращает ошибку после первого чтения — имитация
// прерванной загрузки.
type errReader struct {
	read bool
}

func (r *errReader) Read(p []byte) (int, error) {
	if r.read {
		return 0, io.ErrUnexpectedEOF
	}
	r.read = true
	n := copy(p, []byte("partial"))
	return n, nil
}

func TestSave_AbortedUpload_NoPartialFile(t *testing.T) {
	dir := t.TempDir()
	fs, err := New(dir)
	if err != nil {
		t.Fatalf("Ошибка создания FileStore: %v", err)
	}

	if _, err := fs.Save(&errReader{}, "file-3", "broken.bin"); err == nil {
		t.Fatal("Ожидалась ошибка сохранения")
	}

	entries, err := os.ReadDir(dir)
	if err != nil {
		t.Fatalf("Ошибка чтения директории: %v", err)
	}
	if len(entries) != 0 {
		t.Errorf("После прерванной загрузки в директории осталось %d файлов", len(entries))
	}
}

func TestDelete_MissingFile_NoError(t *testing.T) {
	fs, err := New(t.TempDir())
	if err != nil {
		t.Fatalf("Ошибка создания FileStore: %v", err)
	}

	if err := fs.Delete("nonexistent.bin"); err != nil {
		t.Errorf("Delete несуществующего файла вернул ошибку: %v", err)
	}
}

func TestDelete_RemovesFile(t *testing.T) {
	fs, err := New(t.TempDir())
	if err != nil {
		t.Fatalf("Ошибка создания FileStore: %v", err)
	}

	result, err := fs.Save(strings.NewReader("data"), "file-4", "doc.txt")
	if err != nil {
		t.Fatalf("Ошибка сохранения: %v", err)
	}

	if !fs.Exists(result.StoragePath) {
		t.Fatal("Файл не существует после сохранения")
	}

	if err := fs.Delete(result.StoragePath); err != nil {
		t.Fatalf("Ошибка удаления: %v", err)
	}

	if fs.Exists(result.StoragePath) {
		t.Error("Файл существует после удаления")
	}
}

func TestStorageNameFor(t *testing.T) {
	tests := []struct {
		name     string
		fileID   string
		filename string
		want     string
	}{
		{"с расширением", "id-1", "photo.jpg", "id-1.jpg"},
		{"без расширения", "id-2", "README", "id-2"},
		{"двойное расширение", "id-3", "archive.tar.gz", "id-3.gz"},
		{"небезопасные символы", "id-4", "weird name.p g", "id-4.pg"},
		{"слишком длинное расширение", "id-5", "f."+strings.Repeat("a", 32), "id-5"},
		{"только точка", "id-6", "file.", "id-6"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := storageNameFor(tt.fileID, tt.filename)
			if got != tt.want {
				t.Errorf("storageNameFor(%q, %q): хотели %q, получили %q", tt.fileID, tt.filename, tt.want, got)
			}
		})
	}
}
