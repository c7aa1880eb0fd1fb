package config

import "strings"

// Object store drivers.
const (
	ObjectStoreDriverS3         = "s3"
	ObjectStoreDriverFilesystem = "filesystem"
)

// ObjectStoreConfig selects and configures the evidence blob backend.
type ObjectStoreConfig struct {
	Driver string `env:"OBJECT_STORE_DRIVER" envDefault:"s3"`

	Endpoint  string `env:"S3_ENDPOINT"   envDefault:"localhost:9000"`
	AccessKey string `env:"S3_ACCESS_KEY" envDefault:""`
	SecretKey string `env:"S3_SECRET_KEY" envDefault:""`
	Bucket    string `env:"S3_BUCKET"     envDefault:"swift-evidence"`
	Region    string `env:"S3_REGION"     envDefault:"us-east-1"`
	UseSSL    bool   `env:"S3_USE_SSL"    envDefault:"false"`

	// Root is the directory used by the filesystem driver.
	Root string `env:"OBJECT_STORE_ROOT" envDefault:"./data/evidence"`
}

// Sanitize normalises the driver name and trims endpoint settings.
func (c *ObjectStoreConfig) Sanitize() {
	c.Driver = strings.ToLower(strings.TrimSpace(c.Driver))
	if c.Driver != ObjectStoreDriverFilesystem {
		c.Driver = ObjectStoreDriverS3
	}
	c.Endpoint = strings.TrimSpace(c.Endpoint)
	// minio-go wants host:port, not a URL.
	for _, scheme := range []string{"https://", "http://"} {
		if rest, ok := strings.CutPrefix(c.Endpoint, scheme); ok {
			c.Endpoint = rest
			if scheme == "https://" {
				c.UseSSL = true
			}
		}
	}
	c.Endpoint = strings.TrimRight(c.Endpoint, "/")
	c.Bucket = strings.TrimSpace(c.Bucket)
	c.Region = strings.TrimSpace(c.Region)
	c.Root = strings.TrimSpace(c.Root)
}
