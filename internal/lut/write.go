package lut

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"

	"github.com/dustin/go-humanize"
	"github.com/sirupsen/logrus"

	"sdfit/internal/config"
	"sdfit/internal/grid"
)

// WriteError is returned when the output LUT cannot be created or written.
type WriteError struct {
	Path string
	Err  error
}

func (e *WriteError) Error() string {
	return fmt.Sprintf("could not write LUT %q: %v", e.Path, e.Err)
}

func (e *WriteError) Unwrap() error {
	return e.Err
}

var encode = Encode

// Encode writes buf to w in the given format with precision digits after
// the decimal point. Entries are written in flat index order.
func Encode(w io.Writer, buf Buffer, format config.Format, precision int) error {
	if err := buf.check(); err != nil {
		return err
	}
	n := buf.Size
	bw := bufio.NewWriter(w)

	switch format {
	case config.Cube:
		fmt.Fprintf(bw, "LUT_3D_SIZE %d\n", n)
	case config.SPI3D:
		fmt.Fprintf(bw, "SPILUT 1.0\n3 3\n%d %d %d\n", n, n, n)
	default:
		return fmt.Errorf("lut: unknown format %v", format)
	}

	line := make([]byte, 0, 64)
	for f := 0; f < buf.Len(); f++ {
		line = line[:0]
		if format == config.SPI3D {
			x, y, z := grid.Coordinates(f, n)
			line = strconv.AppendInt(line, int64(x), 10)
			line = append(line, ' ')
			line = strconv.AppendInt(line, int64(y), 10)
			line = append(line, ' ')
			line = strconv.AppendInt(line, int64(z), 10)
			line = append(line, ' ')
		}
		v := buf.At(f)
		for c := 0; c < 3; c++ {
			if c > 0 {
				line = append(line, ' ')
			}
			line = strconv.AppendFloat(line, v[c], 'f', precision, 64)
		}
		line = append(line, '\n')
		if _, err := bw.Write(line); err != nil {
			return err
		}
	}
	return bw.Flush()
}

// Write stores buf at cfg.OutputPath() in cfg.Format and returns the path.
//
// The table is written to a temporary file next to the target which is
// renamed over it once complete, so a failed write never leaves a truncated
// LUT behind.
func Write(buf Buffer, cfg config.Config) (string, error) {
	path := cfg.OutputPath()
	if err := buf.check(); err != nil {
		return path, &WriteError{Path: path, Err: err}
	}

	tmp, err := os.CreateTemp(filepath.Dir(path), "."+filepath.Base(path)+".*")
	if err != nil {
		return path, &WriteError{Path: path, Err: err}
	}
	ok := false
	defer func() {
		if !ok {
			tmp.Close()
			os.Remove(tmp.Name())
		}
	}()

	if err := encode(tmp, buf, cfg.Format, cfg.Precision); err != nil {
		return path, &WriteError{Path: path, Err: err}
	}
	if err := tmp.Chmod(0o644); err != nil {
		return path, &WriteError{Path: path, Err: err}
	}
	if err := tmp.Close(); err != nil {
		return path, &WriteError{Path: path, Err: err}
	}
	if err := os.Rename(tmp.Name(), path); err != nil {
		os.Remove(tmp.Name())
		ok = true
		return path, &WriteError{Path: path, Err: err}
	}
	ok = true

	if st, err := os.Stat(path); err == nil {
		logrus.WithFields(logrus.Fields{
			"path":    path,
			"format":  cfg.Format,
			"entries": humanize.Comma(int64(buf.Len())),
		}).Debugf("wrote %s", humanize.Bytes(uint64(st.Size())))
	}
	return path, nil
}
