package rtsp

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestResolveControlURL_AbsoluteControl(t *testing.T) {
	got := ResolveControlURL("rtsp://other/sess/track1", "rtsp://h/s/", "rtsp://h/s")
	require.Equal(t, "rtsp://other/sess/track1", got)
}

func TestResolveControlURL_AbsoluteControlCaseInsensitiveScheme(t *testing.T) {
	got := ResolveControlURL("RTSP://other/sess/track1", "", "rtsp://h/s")
	require.Equal(t, "RTSP://other/sess/track1", got)
}

func TestResolveControlURL_ContentBaseRelative(t *testing.T) {
	got := ResolveControlURL("trackID=1", "rtsp://h/s/", "rtsp://h/s")
	require.Equal(t, "rtsp://h/s/trackID=1", got)
}

func TestResolveControlURL_RequestURLRelativeNoQuery(t *testing.T) {
	got := ResolveControlURL("trackID=1", "", "rtsp://h/s")
	require.Equal(t, "rtsp://h/s/trackID=1", got)
}

func TestResolveControlURL_RequestURLRelativePreservesQuery(t *testing.T) {
	got := ResolveControlURL("trackID=1", "", "rtsp://h/s?auth=tok")
	require.Equal(t, "rtsp://h/s/trackID=1?auth=tok", got)
}
