package service

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	filesIngestedTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "driftvault_files_ingested_total",
		Help: "Number of uploads that produced a new catalog entry.",
	})

	dedupHitsTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "driftvault_dedup_hits_total",
		Help: "Number of uploads that matched an already stored blob.",
	})

	integrityRejectionsTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "driftvault_integrity_rejections_total",
		Help: "Number of uploads rejected because the declared checksum did not match the content.",
	})

	tombstonesTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "driftvault_tombstones_total",
		Help: "Number of files marked deleted.",
	})

	ledgerVersion = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "driftvault_ledger_version",
		Help: "Highest version assigned by the change ledger.",
	})

	thumbnailsGeneratedTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "driftvault_thumbnails_generated_total",
		Help: "Number of thumbnails rendered (cache misses).",
	})
)
