package filters

import (
	"log/slog"
	"regexp"
	"strconv"
	"strings"
)

// Equalizer presets as ffmpeg filter chains.
var presets = map[string]string{
	"bass_boost": "equalizer=f=60:width_type=o:width=2:g=6," +
		"equalizer=f=150:width_type=o:width=2:g=4",
	"treble_boost": "equalizer=f=8000:width_type=o:width=2:g=5," +
		"equalizer=f=12000:width_type=o:width=2:g=4",
	"vocal_boost": "equalizer=f=1000:width_type=o:width=2:g=3," +
		"equalizer=f=3000:width_type=o:width=2:g=4",
	"flat": "equalizer=f=1000:width_type=o:width=2:g=0",
}

var timestamp = regexp.MustCompile(`^\d{1,2}:\d{2}$`)

// Presets lists the accepted equalizer preset names.
func Presets() []string {
	return []string{"bass_boost", "treble_boost", "vocal_boost", "flat"}
}

type Options struct {
	// Gain multiplier; 0 is treated as unset.
	Volume   float64
	EqPreset string
	// "M:SS-M:SS" or "MM:SS-MM:SS"
	Trim string
}

// Plan is the processor side of a request: trim flags and an audio filter
// graph, kept apart so trim always precedes the graph on the command line.
type Plan struct {
	Trim    []string
	Filters []string
}

func (p Plan) Empty() bool { return len(p.Trim) == 0 && len(p.Filters) == 0 }

// Graph joins the filters into a single -af expression.
func (p Plan) Graph() string { return strings.Join(p.Filters, ",") }

// Args returns the trim flags followed by -af <graph>.
func (p Plan) Args() []string {
	args := append([]string{}, p.Trim...)
	if len(p.Filters) > 0 {
		args = append(args, "-af", p.Graph())
	}
	return args
}

// Build maps user options to processor arguments. An unknown preset adds
// nothing and a malformed trim is logged and dropped, so Build never fails.
func Build(o Options, logger *slog.Logger) Plan {
	var plan Plan

	if o.Volume != 0 && o.Volume != 1.0 {
		plan.Filters = append(plan.Filters, "volume="+strconv.FormatFloat(o.Volume, 'f', -1, 64))
	}

	if eq, ok := presets[o.EqPreset]; ok {
		plan.Filters = append(plan.Filters, eq)
	}

	if o.Trim != "" {
		start, end, ok := ParseTrim(o.Trim)
		if ok {
			plan.Trim = []string{"-ss", start, "-to", end}
		} else {
			logger.Warn("ignoring malformed trim", slog.String("trim", o.Trim))
		}
	}

	return plan
}

// ParseTrim splits "start-end" and checks both sides are minutes:seconds.
func ParseTrim(trim string) (start, end string, ok bool) {
	parts := strings.Split(trim, "-")
	if len(parts) != 2 {
		return "", "", false
	}

	start = strings.TrimSpace(parts[0])
	end = strings.TrimSpace(parts[1])

	if !timestamp.MatchString(start) || !timestamp.MatchString(end) {
		return "", "", false
	}

	return start, end, true
}
