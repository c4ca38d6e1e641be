package catalog

import (
	"net/url"

	"github.com/creasty/defaults"
	"github.com/mitchellh/mapstructure"
	zlog "github.com/rs/zerolog/log"
	"github.com/samber/lo"
)

// PageQuery selects a window of the playlist listing.
type PageQuery struct {
	StartIndex int `mapstructure:"startIndex"`
	Limit      int `mapstructure:"limit"`
}

// ParsePageQuery reads startIndex and limit from request query values.
// Unparsable values fall back to the defaults; the result is not yet clamped.
func ParsePageQuery(values url.Values) PageQuery {
	var q PageQuery

	decoder, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		Result:           &q,
		TagName:          "mapstructure",
		WeaklyTypedInput: true,
	})
	if err == nil {
		err = decoder.Decode(firstValues(values))
	}
	if err != nil {
		zlog.Debug().Msgf("catalog: ignoring malformed page query %q: %v", values.Encode(), err)
		q = PageQuery{}
	}
	return q
}

// normalize applies the default limit and the server-side caps.
func (q PageQuery) normalize(defaultLimit, maxLimit int) PageQuery {
	if q.Limit == 0 {
		q.Limit = defaultLimit
	}
	q.Limit = lo.Clamp(q.Limit, 1, maxLimit)
	q.StartIndex = max(q.StartIndex, 0)
	return q
}

// firstValues flattens query values to their first occurrence.
func firstValues(values url.Values) map[string]any {
	out := make(map[string]any, len(values))
	for k, vs := range values {
		if len(vs) > 0 && vs[0] != "" {
			out[k] = vs[0]
		}
	}
	return out
}

// ImageQuery holds the image transformation parameters passed through to the server.
type ImageQuery struct {
	Tag        string `mapstructure:"tag"`
	FillWidth  string `mapstructure:"fillWidth"`
	FillHeight string `mapstructure:"fillHeight"`
	Quality    string `mapstructure:"quality" default:"85"`
	Format     string `mapstructure:"format"`
}

// ParseImageQuery reads image parameters from request query values.
func ParseImageQuery(values url.Values) ImageQuery {
	var q ImageQuery
	if err := mapstructure.Decode(firstValues(values), &q); err != nil {
		zlog.Debug().Msgf("catalog: ignoring malformed image query: %v", err)
		q = ImageQuery{}
	}
	if err := defaults.Set(&q); err != nil {
		zlog.Warn().Msgf("catalog: failed to set image query defaults: %v", err)
	}
	return q
}

// Values encodes the non-empty parameters in the server's naming.
func (q ImageQuery) Values() url.Values {
	v := url.Values{}
	set := func(k, val string) {
		if val != "" {
			v.Set(k, val)
		}
	}
	set("tag", q.Tag)
	set("fillHeight", q.FillHeight)
	set("fillWidth", q.FillWidth)
	set("quality", q.Quality)
	set("format", q.Format)
	return v
}
