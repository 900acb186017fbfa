package constants

import "time"

const (
	MaxSegmentRetries = 3
	MaxTaskRetries    = 3

	DefaultMaxParallelDownloads = 2
	DefaultMaxParallelSegments  = 4
	MaxParallelDownloadsLimit   = 10
	MaxParallelSegmentsLimit    = 16

	DefaultPollInterval = time.Second

	ManifestFileName = "master.m3u8"
	SegmentsDirName  = "segments"
	EpisodeDirPrefix = "Episode_"
	PartSuffix       = ".part"

	DefaultUserAgent = "Mozilla/5.0 (Linux; Android 13) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/124.0.0.0 Mobile Safari/537.36"
)
