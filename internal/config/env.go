package config

import (
	"fmt"
	"strconv"
	"strings"
)

// ApplyEnv overlays values found in the environment. Set variables win over
// file values; unset ones leave the file value alone.
func (c *Config) ApplyEnv(getenv func(string) string) error {
	str := func(dst *string, key string) {
		if v := strings.TrimSpace(getenv(key)); v != "" {
			*dst = v
		}
	}
	num := func(dst *int, key string) error {
		v := strings.TrimSpace(getenv(key))
		if v == "" {
			return nil
		}
		n, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("invalid %s: %v", key, err)
		}
		*dst = n
		return nil
	}
	list := func(dst *[]string, key string) {
		v := strings.TrimSpace(getenv(key))
		if v == "" {
			return
		}
		var out []string
		for _, part := range strings.Split(v, ",") {
			if part = strings.TrimSpace(part); part != "" {
				out = append(out, part)
			}
		}
		*dst = out
	}

	str(&c.RecordStore.Backend, "RECORD_STORE_BACKEND")
	str(&c.RecordStore.BaseURL, "RECORD_STORE_URL")
	str(&c.RecordStore.APIKey, "RECORD_STORE_API_KEY")
	str(&c.RecordStore.TransactionsTable, "RECORD_STORE_TRANSACTIONS_TABLE")
	str(&c.RecordStore.PartiesTable, "RECORD_STORE_PARTIES_TABLE")
	list(&c.RecordStore.AttachmentFields, "RECORD_STORE_ATTACHMENT_FIELDS")
	str(&c.Database.URL, "DATABASE_URL")

	str(&c.Renderer.Mode, "RENDERER_MODE")
	str(&c.Renderer.URL, "RENDERER_URL")
	str(&c.Renderer.TemplatePath, "RENDER_TEMPLATE_PATH")
	str(&c.Renderer.RegularFontPath, "RENDER_FONT_REGULAR")
	str(&c.Renderer.BoldFontPath, "RENDER_FONT_BOLD")

	str(&c.Mail.Host, "SMTP_HOST")
	str(&c.Mail.Username, "SMTP_USERNAME")
	str(&c.Mail.Password, "SMTP_PASSWORD")
	str(&c.Mail.From, "MAIL_FROM")
	list(&c.Mail.To, "MAIL_TO")

	str(&c.Storage.Endpoint, "STORAGE_ENDPOINT")
	str(&c.Storage.AccessKey, "STORAGE_ACCESS_KEY")
	str(&c.Storage.SecretKey, "STORAGE_SECRET_KEY")
	str(&c.Storage.Bucket, "STORAGE_BUCKET")
	str(&c.Storage.Region, "STORAGE_REGION")
	str(&c.Storage.PublicBaseURL, "STORAGE_PUBLIC_BASE_URL")
	if v := strings.TrimSpace(getenv("STORAGE_SECURE")); v != "" {
		b, err := strconv.ParseBool(v)
		if err != nil {
			return fmt.Errorf("invalid STORAGE_SECURE: %v", err)
		}
		c.Storage.Secure = b
	}

	str(&c.Log.Environment, "ENVIRONMENT")
	str(&c.Log.Level, "LOG_LEVEL")

	for key, dst := range map[string]*int{
		"RECORD_STORE_ATTACHMENT_CEILING": &c.RecordStore.AttachmentCeilingBytes,
		"RENDER_TIMEOUT_SECONDS":          &c.Renderer.TimeoutSeconds,
		"SMTP_PORT":                       &c.Mail.Port,
		"MAIL_ATTACHMENT_CEILING":         &c.Mail.AttachmentCeilingBytes,
		"STORAGE_PRESIGN_MINUTES":         &c.Storage.PresignExpiryMinutes,
		"PORT":                            &c.Server.Port,
	} {
		if err := num(dst, key); err != nil {
			return err
		}
	}

	return nil
}
