package file

import (
	"strings"

	"hls-downloader/pkg/constants"
)

func IsPartFile(filePath string) bool {
	return strings.HasSuffix(filePath, constants.PartSuffix)
}
