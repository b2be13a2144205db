package api

import (
	"compress/gzip"
	"errors"
	"io"
	"net/http"
	"strings"

	"github.com/labstack/echo/v4"
)

// commandBody prepares POST and PUT bodies for decodeBody. Gzip bodies are
// inflated here, and every body is capped at postCommandMaxSize decoded
// bytes so a small compressed payload cannot expand past the limit.
// Encodings other than gzip get a 415.
func commandBody() echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			req := c.Request()
			if req.Method != http.MethodPost && req.Method != http.MethodPut {
				return next(c)
			}

			body := req.Body
			switch enc := contentCoding(req.Header.Get(echo.HeaderContentEncoding)); enc {
			case "":
			case "gzip":
				zr, err := gzip.NewReader(body)
				if err != nil {
					_ = body.Close()
					metricsFrom(c).SetErrorStage("inflate")
					return echo.NewHTTPError(http.StatusBadRequest, "invalid gzip body")
				}
				body = &inflatedBody{zr: zr, raw: body}
				req.ContentLength = -1
				req.Header.Del(echo.HeaderContentEncoding)
				req.Header.Del(echo.HeaderContentLength)
			default:
				metricsFrom(c).SetErrorStage("inflate")
				return echo.NewHTTPError(http.StatusUnsupportedMediaType, "unsupported content encoding: "+enc)
			}

			req.Body = http.MaxBytesReader(c.Response(), body, postCommandMaxSize)
			return next(c)
		}
	}
}

// contentCoding reduces a Content-Encoding list to the coding applied,
// ignoring identity. Stacked codings are returned joined and get refused.
func contentCoding(header string) string {
	var codings []string
	for _, part := range strings.Split(header, ",") {
		coding := strings.ToLower(strings.TrimSpace(part))
		if coding == "" || coding == "identity" {
			continue
		}
		codings = append(codings, coding)
	}
	return strings.Join(codings, ", ")
}

type inflatedBody struct {
	zr  *gzip.Reader
	raw io.ReadCloser
}

func (b *inflatedBody) Read(p []byte) (int, error) { return b.zr.Read(p) }

func (b *inflatedBody) Close() error {
	return errors.Join(b.zr.Close(), b.raw.Close())
}
