package shipping

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"tradedesk/blob"
	"tradedesk/filemgr"
	"tradedesk/lifecycle"
	"tradedesk/logging"
	"tradedesk/models"
	"tradedesk/notify"
	"tradedesk/utils"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

var (
	ErrNoMedia      = errors.New("no images or videos uploaded")
	ErrUnknownKind  = errors.New("kind must be image or video")
	ErrMediaMissing = errors.New("media url not attached to shipment")
)

// View applies the delivery date display rule.
type View struct {
	models.Shipment
}

func NewView(s models.Shipment) View {
	s.EstimatedDelivery, s.DeliveredAt = lifecycle.DeliveryDates(lifecycle.ShipmentStatus(s.Status), s.EstimatedDelivery, s.DeliveredAt)
	if s.ImagesURLs == nil {
		s.ImagesURLs = []string{}
	}
	if s.VideosURLs == nil {
		s.VideosURLs = []string{}
	}
	return View{Shipment: s}
}

// Update is the staff-editable part of a shipment. Absent fields are kept.
type Update struct {
	Status            *string    `json:"status,omitempty"`
	Location          *string    `json:"location,omitempty"`
	EstimatedDelivery *time.Time `json:"estimated_delivery,omitempty"`
	DeliveredAt       *time.Time `json:"delivered_at,omitempty"`
}

type Service struct {
	store       Store
	blobs       blob.Store
	bucket      string
	parallelism int
	events      notify.Publisher
	now         func() time.Time
}

func NewService(store Store, blobs blob.Store, bucket string, parallelism int, events notify.Publisher) *Service {
	if parallelism <= 0 {
		parallelism = 4
	}
	return &Service{
		store:       store,
		blobs:       blobs,
		bucket:      bucket,
		parallelism: parallelism,
		events:      events,
		now:         time.Now,
	}
}

func (s *Service) List(ctx context.Context, f Filter) ([]View, error) {
	if f.Status != "" {
		st, err := lifecycle.ParseShipmentStatus(f.Status)
		if err != nil {
			return nil, err
		}
		f.Status = string(st)
	}
	rows, err := s.store.List(ctx, f)
	if err != nil {
		return nil, err
	}
	out := make([]View, 0, len(rows))
	for _, r := range rows {
		out = append(out, NewView(r))
	}
	return out, nil
}

// Get loads a shipment; a non-empty userID restricts it to that owner.
func (s *Service) Get(ctx context.Context, companyID, userID, id string) (*View, error) {
	sh, err := s.store.Get(ctx, companyID, id)
	if err != nil {
		return nil, err
	}
	if userID != "" && sh.UserID != userID {
		return nil, ErrNotFound
	}
	v := NewView(*sh)
	return &v, nil
}

// Open creates the shipment for an order, or returns the one it already has.
func (s *Service) Open(ctx context.Context, o models.Order) (*models.Shipment, error) {
	now := s.now().UTC()
	sh, err := s.store.Open(ctx, models.Shipment{
		ID:              utils.GetUUID(),
		CompanyID:       o.CompanyID,
		UserID:          o.UserID,
		OrderID:         o.ID,
		QuotationID:     o.QuotationID,
		TrackingID:      utils.NewReference("TRK"),
		Status:          string(lifecycle.ShipmentProcessingLower),
		ImagesURLs:      []string{},
		VideosURLs:      []string{},
		ReceiverName:    o.ReceiverName,
		ReceiverPhone:   o.ReceiverPhone,
		ReceiverAddress: o.ReceiverAddress,
		CreatedAt:       now,
		UpdatedAt:       now,
	})
	if err != nil {
		return nil, fmt.Errorf("open shipment for order %s: %w", o.ID, err)
	}
	return sh, nil
}

// Update edits a shipment. Any status may follow any other; a delivered status
// without a delivery time is stamped with now.
func (s *Service) Update(ctx context.Context, companyID, id string, u Update) (*View, error) {
	sh, err := s.store.Get(ctx, companyID, id)
	if err != nil {
		return nil, err
	}
	now := s.now().UTC()
	fields := map[string]interface{}{"updated_at": now}

	if u.Status != nil {
		st, err := lifecycle.ParseShipmentStatus(*u.Status)
		if err != nil {
			return nil, err
		}
		sh.Status = string(st)
		fields["status"] = sh.Status
	}
	if u.Location != nil {
		sh.Location = strings.TrimSpace(*u.Location)
		fields["location"] = sh.Location
	}
	if u.EstimatedDelivery != nil {
		sh.EstimatedDelivery = u.EstimatedDelivery
		fields["estimated_delivery"] = *u.EstimatedDelivery
	}
	if u.DeliveredAt != nil {
		sh.DeliveredAt = u.DeliveredAt
	}
	if stamped := lifecycle.StampDelivered(lifecycle.ShipmentStatus(sh.Status), sh.DeliveredAt, now); stamped != nil {
		sh.DeliveredAt = stamped
		fields["delivered_at"] = *stamped
	}
	sh.UpdatedAt = now

	if err := s.store.Update(ctx, companyID, id, fields); err != nil {
		return nil, fmt.Errorf("update shipment: %w", err)
	}
	s.publish(ctx, *sh, map[string]interface{}{"status": sh.Status, "location": sh.Location})
	v := NewView(*sh)
	return &v, nil
}

// MediaBatch holds validated uploads for one request. Durations are the
// client-reported video lengths, in video order; missing entries are not checked.
type MediaBatch struct {
	Images    []*filemgr.Upload
	Videos    []*filemgr.Upload
	Durations []time.Duration
}

// AttachMedia uploads a batch in parallel and appends the URLs with one atomic
// push per media field. Nothing is attached when any upload fails.
func (s *Service) AttachMedia(ctx context.Context, companyID, id string, b MediaBatch) (*View, error) {
	if len(b.Images) == 0 && len(b.Videos) == 0 {
		return nil, ErrNoMedia
	}
	for i := range b.Videos {
		if i < len(b.Durations) {
			if err := filemgr.CheckDuration(b.Durations[i]); err != nil {
				return nil, fmt.Errorf("%s: %w", b.Videos[i].Filename, err)
			}
		}
	}
	if _, err := s.store.Get(ctx, companyID, id); err != nil {
		return nil, err
	}
	for _, img := range b.Images {
		if err := filemgr.Reencode(img); err != nil {
			return nil, fmt.Errorf("%w: %v", filemgr.ErrInvalidMIME, err)
		}
	}

	all := append(append([]*filemgr.Upload{}, b.Images...), b.Videos...)
	keys := make([]string, len(all))
	urls := make([]string, len(all))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(s.parallelism)
	for i, u := range all {
		i, u := i, u
		keys[i] = filemgr.ShipmentObjectKey(id, u.Kind, u.Ext)
		g.Go(func() error {
			url, err := s.blobs.Put(gctx, s.bucket, keys[i], u.Reader(), u.Size(), u.ContentType)
			if err != nil {
				return fmt.Errorf("upload %s: %w", u.Filename, err)
			}
			urls[i] = url
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		s.cleanup(keys, urls)
		return nil, err
	}

	imageURLs, videoURLs := urls[:len(b.Images)], urls[len(b.Images):]
	if len(imageURLs) > 0 {
		if err := s.store.PushMedia(ctx, companyID, id, fieldImages, imageURLs); err != nil {
			s.cleanup(keys, urls)
			return nil, fmt.Errorf("attach images: %w", err)
		}
	}
	if len(videoURLs) > 0 {
		if err := s.store.PushMedia(ctx, companyID, id, fieldVideos, videoURLs); err != nil {
			s.cleanup(keys[len(b.Images):], videoURLs)
			return nil, fmt.Errorf("attach videos: %w", err)
		}
	}

	sh, err := s.store.Get(ctx, companyID, id)
	if err != nil {
		return nil, err
	}
	s.publish(ctx, *sh, map[string]interface{}{"images": len(imageURLs), "videos": len(videoURLs)})
	v := NewView(*sh)
	return &v, nil
}

// RemoveMedia pulls url from the shipment and deletes the object, best effort.
func (s *Service) RemoveMedia(ctx context.Context, companyID, id string, kind filemgr.MediaKind, url string) (*View, error) {
	field := ""
	switch kind {
	case filemgr.KindImage:
		field = fieldImages
	case filemgr.KindVideo:
		field = fieldVideos
	default:
		return nil, ErrUnknownKind
	}
	removed, err := s.store.PullMedia(ctx, companyID, id, field, url)
	if err != nil {
		return nil, err
	}
	if !removed {
		return nil, ErrMediaMissing
	}
	if key, ok := blob.KeyFromURL(s.blobs, s.bucket, url); ok {
		if err := s.blobs.Delete(ctx, s.bucket, key); err != nil {
			logging.Logger.Warn("delete shipment media", zap.String("url", url), zap.Error(err))
		}
	}

	sh, err := s.store.Get(ctx, companyID, id)
	if err != nil {
		return nil, err
	}
	s.publish(ctx, *sh, map[string]interface{}{"removed": url})
	v := NewView(*sh)
	return &v, nil
}

// cleanup removes objects uploaded by a failed batch.
func (s *Service) cleanup(keys, urls []string) {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	for i, u := range urls {
		if u == "" {
			continue
		}
		if err := s.blobs.Delete(ctx, s.bucket, keys[i]); err != nil {
			logging.Logger.Warn("cleanup upload", zap.String("key", keys[i]), zap.Error(err))
		}
	}
}

func (s *Service) publish(ctx context.Context, sh models.Shipment, data map[string]interface{}) {
	if s.events == nil {
		return
	}
	e := notify.NewEvent(notify.ShipmentUpdated, sh.CompanyID, sh.UserID, sh.ID, data)
	if err := s.events.Publish(ctx, e); err != nil {
		logging.Logger.Warn("publish event", zap.String("type", e.Type), zap.Error(err))
	}
}
