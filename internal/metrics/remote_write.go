package metrics

import (
	"bytes"
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/golang/snappy"
	dto "github.com/prometheus/client_model/go"
	"github.com/prometheus/prometheus/prompb"
	"go.uber.org/zap"

	"github.com/seatguard/seatguard/internal/config"
)

// RemoteWriter pushes the collector's samples to a Prometheus
// remote-write endpoint, split per tenant via the scope-org header.
type RemoteWriter struct {
	cfg       config.MetricsConfig
	collector *Collector
	client    *http.Client
	logger    *zap.Logger
}

func NewRemoteWriter(cfg config.MetricsConfig, collector *Collector, logger *zap.Logger) *RemoteWriter {
	return &RemoteWriter{
		cfg:       cfg,
		collector: collector,
		client:    &http.Client{Timeout: 30 * time.Second},
		logger:    logger,
	}
}

func (w *RemoteWriter) Start(ctx context.Context) {
	if w.cfg.RemoteWriteURL == "" {
		w.logger.Info("Remote write disabled, no endpoint configured")
		return
	}

	ticker := time.NewTicker(w.cfg.FlushInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if err := w.flush(); err != nil {
				w.logger.Error("Remote write flush failed", zap.Error(err))
			}
		}
	}
}

func (w *RemoteWriter) flush() error {
	mfs, err := w.collector.registry.Gather()
	if err != nil {
		return fmt.Errorf("failed to gather metrics: %w", err)
	}

	samples := w.metricsToSamples(mfs)
	if len(samples) == 0 {
		return nil
	}

	for i := 0; i < len(samples); i += w.cfg.BatchSize {
		end := i + w.cfg.BatchSize
		if end > len(samples) {
			end = len(samples)
		}
		if err := w.sendBatch(samples[i:end]); err != nil {
			return fmt.Errorf("failed to send batch: %w", err)
		}
	}

	return nil
}

func (w *RemoteWriter) metricsToSamples(mfs []*dto.MetricFamily) []prompb.TimeSeries {
	var samples []prompb.TimeSeries

	for _, mf := range mfs {
		for _, m := range mf.Metric {
			var tenantID string
			labels := make([]prompb.Label, 0, len(m.Label)+1)

			for _, l := range m.Label {
				if l.GetName() == "tenant_id" {
					tenantID = l.GetValue()
				}
				labels = append(labels, prompb.Label{
					Name:  l.GetName(),
					Value: l.GetValue(),
				})
			}

			if tenantID == "" {
				continue // only tenant-scoped series are pushed
			}

			labels = append(labels, prompb.Label{
				Name:  "__name__",
				Value: mf.GetName(),
			})

			var value float64
			switch mf.GetType() {
			case dto.MetricType_COUNTER:
				value = m.Counter.GetValue()
			case dto.MetricType_GAUGE:
				value = m.Gauge.GetValue()
			default:
				continue
			}

			samples = append(samples, prompb.TimeSeries{
				Labels: labels,
				Samples: []prompb.Sample{{
					Value:     value,
					Timestamp: time.Now().UnixNano() / 1e6,
				}},
			})
		}
	}

	return samples
}

func (w *RemoteWriter) sendBatch(samples []prompb.TimeSeries) error {
	byTenant := make(map[string][]prompb.TimeSeries)
	for _, ts := range samples {
		for _, label := range ts.Labels {
			if label.Name == "tenant_id" {
				byTenant[label.Value] = append(byTenant[label.Value], ts)
				break
			}
		}
	}

	for tenantID, tenantSamples := range byTenant {
		req := &prompb.WriteRequest{
			Timeseries: tenantSamples,
		}

		data, err := req.Marshal()
		if err != nil {
			return err
		}

		compressed := snappy.Encode(nil, data)

		httpReq, err := http.NewRequest(http.MethodPost, w.cfg.RemoteWriteURL+"/api/v1/push", bytes.NewReader(compressed))
		if err != nil {
			return err
		}

		httpReq.Header.Set("Content-Type", "application/x-protobuf")
		httpReq.Header.Set("Content-Encoding", "snappy")
		httpReq.Header.Set(w.cfg.TenantHeader, tenantID)
		if w.cfg.AuthToken != "" {
			httpReq.Header.Set("Authorization", "Bearer "+w.cfg.AuthToken)
		}

		resp, err := w.client.Do(httpReq)
		if err != nil {
			return err
		}
		resp.Body.Close()

		if resp.StatusCode != http.StatusOK && resp.StatusCode != http.StatusNoContent {
			return fmt.Errorf("remote write failed: %s", resp.Status)
		}
	}

	return nil
}
