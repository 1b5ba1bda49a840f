package main

import (
	"bytes"
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"image"
	_ "image/jpeg"
	"image/png"
	"log"
	"math"
	"net/http"
	"os"
	"strconv"
	"time"

	diffimage "pixelmatch/internal/diff/image"
	"pixelmatch/internal/retry"
	"pixelmatch/internal/storage"

	"github.com/joho/godotenv"
	"golang.org/x/sync/errgroup"
	"golang.org/x/xerrors"
)

const (
	exitDimensionMismatch = 65
	exitPixelsDiffer      = 66
)

type DiffOutput struct {
	DiffPath            string  `json:"diffPath,omitempty"`
	DiffPixels          int     `json:"diffPixels"`
	DiffAmount          float64 `json:"diffAmount"`
	ElapsedMicroSeconds int64   `json:"elapsedMicroSeconds"`
}

func envOrDefaultValue[T any](key string, defaultValue T) T {
	value, exists := os.LookupEnv(key)
	if !exists {
		return defaultValue
	}

	switch any(defaultValue).(type) {
	case string:
		return any(value).(T)
	case int:
		if intValue, err := strconv.Atoi(value); err == nil {
			return any(intValue).(T)
		}
	case int64:
		if intValue, err := strconv.ParseInt(value, 10, 64); err == nil {
			return any(intValue).(T)
		}
	case float64:
		if floatValue, err := strconv.ParseFloat(value, 64); err == nil {
			return any(floatValue).(T)
		}
	case bool:
		if boolValue, err := strconv.ParseBool(value); err == nil {
			return any(boolValue).(T)
		}
	case time.Duration:
		if durationValue, err := time.ParseDuration(value); err == nil {
			return any(durationValue).(T)
		}
	}

	return defaultValue
}

func main() {
	_ = godotenv.Load()

	var threshold float64
	var includeAA bool
	var alpha float64
	var mask bool
	var format string
	var storageBackend string
	var directory string
	var callbackURL string
	flag.Float64Var(&threshold, "threshold", envOrDefaultValue("THRESHOLD", 0.1), "Matching threshold (0 to 1); smaller is more sensitive")
	flag.BoolVar(&includeAA, "include-aa", envOrDefaultValue("INCLUDE_AA", false), "Count anti-aliased pixels as differences")
	flag.Float64Var(&alpha, "alpha", envOrDefaultValue("ALPHA", 0.1), "Opacity of the original image in the diff output")
	flag.BoolVar(&mask, "mask", envOrDefaultValue("DIFF_MASK", false), "Render only differences over a transparent background")
	flag.StringVar(&format, "format", envOrDefaultValue("FORMAT", "pixel"), "Output format (pixel or rectangle)")
	flag.StringVar(&storageBackend, "storage-backend", envOrDefaultValue("STORAGE_BACKEND", "file"), "Storage backend (file or s3)")
	flag.StringVar(&directory, "directory", envOrDefaultValue("DIRECTORY", "."), "Output directory for the file backend")
	flag.StringVar(&callbackURL, "callback-url", envOrDefaultValue("CALLBACK_URL", ""), "Callback URL to send the result to")

	flag.Parse()

	args := flag.Args()
	if len(args) < 2 {
		fmt.Fprintf(os.Stderr, "Usage: %s [flags] img1 img2 [diff]\n", os.Args[0])
		flag.PrintDefaults()
		os.Exit(2)
	}

	ctx := context.Background()

	var s storage.Storage
	var err error
	switch storageBackend {
	case "file":
		s, err = storage.NewFileStorage(ctx, storage.FileConfig{
			Directory: directory,
		})
		if err != nil {
			log.Fatalf("Failed to create file storage backend: %v", err)
		}
	case "s3":
		s, err = storage.NewS3Storage(ctx, storage.S3Config{
			Bucket: os.Getenv("S3_BUCKET"),
		})
		if err != nil {
			log.Fatalf("Failed to create S3 storage backend: %v", err)
		}
	default:
		log.Fatalf("Unknown storage backend: %s", storageBackend)
	}

	var img1, img2 image.Image
	{
		eg, ctx := errgroup.WithContext(ctx)
		eg.Go(func() error {
			var err error
			img1, err = loadImage(ctx, s, args[0])
			return err
		})
		eg.Go(func() error {
			var err error
			img2, err = loadImage(ctx, s, args[1])
			return err
		})
		if err := eg.Wait(); err != nil {
			log.Fatalf("Failed to load images: %v", err)
		}
	}

	size1 := img1.Bounds().Size()
	size2 := img2.Bounds().Size()
	if size1 != size2 {
		fmt.Printf("Image dimensions do not match: %dx%d vs %dx%d\n", size1.X, size1.Y, size2.X, size2.Y)
		os.Exit(exitDimensionMismatch)
	}

	opts := diffimage.DefaultOptions()
	opts.Threshold = threshold
	opts.IncludeAA = includeAA
	opts.Alpha = alpha
	opts.DiffMask = mask

	var differ diffimage.Differ
	switch format {
	case "pixel":
		differ = diffimage.NewPixelDiff(opts)
	case "rectangle":
		differ = diffimage.NewRectangleDiff(opts)
	default:
		log.Fatalf("Unknown diff format: %s", format)
	}

	now := time.Now()
	result, err := differ.Calculate(img1, img2)
	if err != nil {
		log.Fatalf("Failed to calculate diff: %v", err)
	}
	elapsed := time.Since(now)

	fmt.Printf("matched in %dµs\n", elapsed.Microseconds())
	fmt.Printf("different pixels: %d\n", result.DiffPixels)
	fmt.Printf("error: %v%%\n", math.Round(result.DiffAmount*100*100)/100)

	output := DiffOutput{
		DiffPixels:          result.DiffPixels,
		DiffAmount:          result.DiffAmount,
		ElapsedMicroSeconds: elapsed.Microseconds(),
	}

	if len(args) > 2 {
		var buffer bytes.Buffer
		if err := png.Encode(&buffer, result.Image); err != nil {
			log.Fatalf("Failed to encode diff image: %v", err)
		}

		diffPath, err := s.Put(ctx, args[2], buffer.Bytes())
		if err != nil {
			log.Fatalf("Failed to save diff image: %v", err)
		}
		output.DiffPath = diffPath
	}

	if callbackURL != "" {
		if err := callback(ctx, callbackURL, output); err != nil {
			log.Fatalf("Failed to send callback: %v", err)
		}
	}

	if result.DiffPixels > 0 {
		os.Exit(exitPixelsDiffer)
	}
}

func loadImage(ctx context.Context, s storage.Storage, path string) (image.Image, error) {
	data, err := s.Get(ctx, path)
	if err != nil {
		return nil, err
	}

	img, _, err := image.Decode(bytes.NewReader(data))
	if err != nil {
		return nil, xerrors.Errorf("failed to decode %s: %w", path, err)
	}

	return img, nil
}

func callback(ctx context.Context, url string, output DiffOutput) error {
	j, err := json.Marshal(output)
	if err != nil {
		return xerrors.Errorf("failed to marshal result: %w", err)
	}

	client := &http.Client{
		Transport: &retry.Transport{
			RetryStrategy: retry.NewExponentialBackOff(100*time.Millisecond, 5*time.Second, 5, nil),
			RetryOn:       retry.NewDefaultRetryOn(),
		},
	}

	request, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(j))
	if err != nil {
		return xerrors.Errorf("failed to create callback request: %w", err)
	}
	request.Header.Set("Content-Type", "application/json")

	response, err := client.Do(request)
	if err != nil {
		return xerrors.Errorf("failed to send callback: %w", err)
	}
	defer response.Body.Close()

	if response.StatusCode >= 400 {
		return xerrors.Errorf("callback returned status %d", response.StatusCode)
	}

	return nil
}
