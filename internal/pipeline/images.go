package pipeline

import (
	"context"
	"sync/atomic"

	"github.com/rs/zerolog/log"
	"golang.org/x/sync/errgroup"

	"github.com/tene/catalog-import/internal/metrics"
	"github.com/tene/catalog-import/internal/normalize"
	"github.com/tene/catalog-import/internal/types"
)

type imageTask struct {
	productID int32
	photo     string
	color     string
}

// productImageTasks lists every row with a resolvable non-zero id and a photo
func productImageTasks(rows []types.LegacyProductRow) []imageTask {
	var tasks []imageTask
	for _, r := range rows {
		if r.Photo == "" {
			continue
		}
		id, err := normalize.ParseProductID(r.Code, r.ID)
		if err != nil || id == 0 {
			continue
		}
		tasks = append(tasks, imageTask{productID: id, photo: r.Photo, color: r.Color})
	}
	return tasks
}

// UploadProductImages uploads every product photo with at most concurrency
// uploads in flight. A failed upload only affects its own image.
func UploadProductImages(ctx context.Context, uploader ImageUploader, rows []types.LegacyProductRow, concurrency int) *types.ImagesResult {
	tasks := productImageTasks(rows)
	result := &types.ImagesResult{Total: len(tasks)}
	log.Info().Int("total", len(tasks)).Msg("Uploading product images")

	if concurrency < 1 {
		concurrency = 1
	}

	var uploaded, failed, done atomic.Int64
	var g errgroup.Group
	g.SetLimit(concurrency)

	for _, task := range tasks {
		g.Go(func() error {
			err := uploader.UploadProductImage(ctx, task.productID, task.photo, task.color)
			n := done.Add(1)
			if err != nil {
				failed.Add(1)
				metrics.Images.WithLabelValues("product", metrics.ResultFailed).Inc()
				log.Warn().Err(err).Int64("done", n).Int("total", len(tasks)).Int32("product_id", task.productID).Msg("Product image not uploaded")
				return nil
			}
			uploaded.Add(1)
			metrics.Images.WithLabelValues("product", metrics.ResultUploaded).Inc()
			log.Debug().Int64("done", n).Int("total", len(tasks)).Int32("product_id", task.productID).Msg("Product image uploaded")
			return nil
		})
	}
	_ = g.Wait()

	result.Uploaded = int(uploaded.Load())
	result.Failed = int(failed.Load())
	log.Info().Int("uploaded", result.Uploaded).Int("failed", result.Failed).Msg("Product images uploaded")
	return result
}
