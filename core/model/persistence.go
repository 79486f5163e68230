package model

import (
	"encoding/gob"
	"io"
	"os"
	"path/filepath"

	"github.com/ulikunitz/xz"

	scierrors "github.com/YuminosukeSato/pricepredict/pkg/errors"
)

// WriteAtomic は path へアトミックに書き込む
//
// 手順: 既存ファイルを削除し、同じディレクトリの一時ファイルへ write で書き込み、
// fsync してから rename で置き換える。失敗した場合は一時ファイルを必ず削除するため、
// 呼び出し側が中途半端なファイルを目にすることはない。
//
// 戻り値:
//   - error: 失敗時は PersistenceError
func WriteAtomic(path string, write func(w io.Writer) error) (err error) {
	if err := os.Remove(path); err != nil && !os.IsNotExist(err) {
		return scierrors.NewPersistenceError(path, "cannot remove stale file", err)
	}

	tmp, err := os.CreateTemp(filepath.Dir(path), "."+filepath.Base(path)+".*.tmp")
	if err != nil {
		return scierrors.NewPersistenceError(path, "cannot create file in", err)
	}
	tmpName := tmp.Name()
	defer func() {
		if err != nil {
			tmp.Close()
			os.Remove(tmpName)
		}
	}()

	if err := write(tmp); err != nil {
		return scierrors.NewPersistenceError(path, "cannot write", err)
	}
	if err := tmp.Sync(); err != nil {
		return scierrors.NewPersistenceError(path, "cannot sync", err)
	}
	if err := tmp.Close(); err != nil {
		return scierrors.NewPersistenceError(path, "cannot close", err)
	}
	if err := os.Rename(tmpName, path); err != nil {
		return scierrors.NewPersistenceError(path, "cannot rename into", err)
	}
	return nil
}

// SaveModel はモデルを xz 圧縮した gob としてファイルに保存する
//
// 使用例:
//
//	err := model.SaveModel(&artifact, "TrainedHouses.csv")
func SaveModel(model interface{}, filename string) error {
	return WriteAtomic(filename, func(w io.Writer) error {
		return SaveModelToWriter(model, w)
	})
}

// LoadModel はファイルからモデルを読み込む
func LoadModel(model interface{}, filename string) error {
	file, err := os.Open(filename)
	if err != nil {
		return scierrors.NewPersistenceError(filename, "cannot open", err)
	}
	defer file.Close()

	if err := LoadModelFromReader(model, file); err != nil {
		return scierrors.NewPersistenceError(filename, "cannot decode", err)
	}
	return nil
}

// SaveModelToWriter はモデルを io.Writer に保存する
//
// xz ストリームは Close で確定するため、w への書き込みはこの関数の戻りで完了している。
func SaveModelToWriter(model interface{}, w io.Writer) error {
	xw, err := xz.NewWriter(w)
	if err != nil {
		return scierrors.Wrap(err, "failed to open xz stream")
	}
	if err := gob.NewEncoder(xw).Encode(model); err != nil {
		xw.Close()
		return scierrors.Wrap(err, "failed to encode model")
	}
	if err := xw.Close(); err != nil {
		return scierrors.Wrap(err, "failed to close xz stream")
	}
	return nil
}

// LoadModelFromReader は io.Reader からモデルを読み込む
func LoadModelFromReader(model interface{}, r io.Reader) error {
	xr, err := xz.NewReader(r)
	if err != nil {
		return scierrors.Wrap(err, "failed to open xz stream")
	}
	if err := gob.NewDecoder(xr).Decode(model); err != nil {
		return scierrors.Wrap(err, "failed to decode model")
	}
	return nil
}
