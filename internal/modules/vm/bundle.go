package vm

import (
	"archive/tar"
	"errors"
	"fmt"
	"io"
	"os"
	"path"
	"path/filepath"
	"strings"

	"github.com/klauspost/compress/gzip"
	"howett.net/plist"
)

const bundleSettings = "settings.plist"

// NameFromPath имя ВМ по умолчанию: имя файла до первой точки (ведущая точка не считается).
func NameFromPath(file string) string {
	name := filepath.Base(file)
	if i := strings.Index(name[1:], "."); i >= 0 {
		name = name[:i+1]
	}
	return name
}

type bundleSettingsDoc struct {
	Name        string `plist:"name"`
	DisplayName string `plist:"display_name"`
}

// GuessName достает имя ВМ из settings.plist внутри .box архива: name, затем display_name.
// Если архив не читается или имени в нем нет, используется NameFromPath.
func GuessName(file string) string {
	name, err := bundleName(file)
	if err != nil || name == "" {
		return NameFromPath(file)
	}
	return name
}

func bundleName(file string) (string, error) {
	f, err := os.Open(file) // #nosec G304 -- путь к образу задается пользователем.
	if err != nil {
		return "", err
	}
	defer f.Close()
	zr, err := gzip.NewReader(f)
	if err != nil {
		return "", fmt.Errorf("open bundle %s: %w", file, err)
	}
	defer zr.Close()
	tr := tar.NewReader(zr)
	for {
		hdr, err := tr.Next()
		if errors.Is(err, io.EOF) {
			return "", nil
		}
		if err != nil {
			return "", fmt.Errorf("read bundle %s: %w", file, err)
		}
		if hdr.Typeflag != tar.TypeReg || path.Base(hdr.Name) != bundleSettings {
			continue
		}
		data, err := io.ReadAll(io.LimitReader(tr, 1<<20))
		if err != nil {
			return "", err
		}
		var doc bundleSettingsDoc
		if _, err := plist.Unmarshal(data, &doc); err != nil {
			return "", fmt.Errorf("parse %s: %w", bundleSettings, err)
		}
		if doc.Name != "" {
			return doc.Name, nil
		}
		return doc.DisplayName, nil
	}
}
