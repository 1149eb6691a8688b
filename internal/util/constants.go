package util

const (
	StorageLocal = "local"
	StorageMinio = "minio"
	StorageOSS   = "oss"
)

const MimePDF = "application/pdf"

// MaxUploadSize caps question document uploads.
const MaxUploadSize = 50 << 20
