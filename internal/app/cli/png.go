package cli

import (
	"encoding/binary"
	"image"
	"image/png"
	"os"

	coreerrors "rawbridge-core/internal/core/errors"
	"rawbridge-core/internal/engine"
)

// toImage 把交错存储的引擎输出转成 image.Image
// 16 位数据为原生字节序，image 包要求大端
func toImage(img *engine.Image) (image.Image, error) {
	rect := image.Rect(0, 0, img.Width, img.Height)
	n := img.Width * img.Height
	bpp := img.Bits / 8
	if bpp != 1 && bpp != 2 {
		return nil, coreerrors.Newf(coreerrors.CodeNotImplemented, "unsupported output depth %d", img.Bits)
	}
	if len(img.Data) < n*img.Colors*bpp {
		return nil, coreerrors.Newf(coreerrors.CodeDataError, "image data too short: %d bytes", len(img.Data))
	}

	sample := func(i int) uint16 {
		if bpp == 2 {
			return binary.NativeEndian.Uint16(img.Data[i*2:])
		}
		return uint16(img.Data[i])
	}

	switch img.Colors {
	case 1:
		if bpp == 1 {
			return &image.Gray{Pix: img.Data[:n], Stride: img.Width, Rect: rect}, nil
		}
		out := image.NewGray16(rect)
		for i := 0; i < n; i++ {
			binary.BigEndian.PutUint16(out.Pix[i*2:], sample(i))
		}
		return out, nil
	case 3:
		if bpp == 1 {
			out := image.NewNRGBA(rect)
			for i := 0; i < n; i++ {
				copy(out.Pix[i*4:], img.Data[i*3:i*3+3])
				out.Pix[i*4+3] = 0xff
			}
			return out, nil
		}
		out := image.NewNRGBA64(rect)
		for i := 0; i < n; i++ {
			for c := 0; c < 3; c++ {
				binary.BigEndian.PutUint16(out.Pix[i*8+c*2:], sample(i*3+c))
			}
			binary.BigEndian.PutUint16(out.Pix[i*8+6:], 0xffff)
		}
		return out, nil
	default:
		return nil, coreerrors.Newf(coreerrors.CodeNotImplemented, "unsupported color count %d", img.Colors)
	}
}

// imageExt 写出文件的扩展名
func imageExt(img *engine.Image) string {
	if img.Format == engine.ImageJPEG {
		return ".jpg"
	}
	return ".png"
}

// writeImage JPEG 原样写出，位图编码为 PNG
func writeImage(path string, img *engine.Image) error {
	if img.Format != engine.ImageJPEG {
		return writePNG(path, img)
	}
	if err := os.WriteFile(path, img.Data, 0o644); err != nil {
		return coreerrors.Wrapf(err, coreerrors.CodeIOError, "write %s", path)
	}
	return nil
}

func writePNG(path string, img *engine.Image) error {
	m, err := toImage(img)
	if err != nil {
		return err
	}
	f, err := os.Create(path)
	if err != nil {
		return coreerrors.Wrapf(err, coreerrors.CodeIOError, "create %s", path)
	}
	if err := png.Encode(f, m); err != nil {
		_ = f.Close()
		return coreerrors.Wrapf(err, coreerrors.CodeIOError, "encode %s", path)
	}
	if err := f.Close(); err != nil {
		return coreerrors.Wrapf(err, coreerrors.CodeIOError, "close %s", path)
	}
	return nil
}
