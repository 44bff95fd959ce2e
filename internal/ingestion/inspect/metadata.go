package inspect

import (
	"strconv"
	"strings"

	"github.com/suyashkumar/dicom"
	"github.com/suyashkumar/dicom/pkg/tag"
)

// Metadata is the subset of DICOM attributes the pipeline needs from one
// file. Optional attributes expose presence through pointer accessors so
// callers never confuse "absent" with a zero value.
type Metadata struct {
	Path string

	StudyInstanceUID  string
	SeriesInstanceUID string
	SOPClassUID       string
	SOPInstanceUID    string

	Modality         string
	BodyPartExamined string

	imageOrientation []float64
	rescaleSlope     *float64
	rescaleIntercept *float64
	pixelPadding     *int

	FrameCount   int
	HasPixelData bool
}

// ImageOrientation returns the six direction cosines, or nil when absent.
func (m *Metadata) ImageOrientation() []float64 { return m.imageOrientation }

// RescaleSlope returns the slope, defaulting to 1 when the tag is absent.
func (m *Metadata) RescaleSlope() float64 {
	if m.rescaleSlope == nil {
		return 1
	}
	return *m.rescaleSlope
}

// RescaleIntercept returns the intercept, defaulting to 0 when absent.
func (m *Metadata) RescaleIntercept() float64 {
	if m.rescaleIntercept == nil {
		return 0
	}
	return *m.rescaleIntercept
}

// PixelPadding returns the padding value and whether it was present.
func (m *Metadata) PixelPadding() (int, bool) {
	if m.pixelPadding == nil {
		return 0, false
	}
	return *m.pixelPadding, true
}

// ReadMetadata pulls the pipeline attributes out of a parsed dataset.
func ReadMetadata(path string, ds dicom.Dataset) *Metadata {
	m := &Metadata{Path: path}

	m.StudyInstanceUID = elementString(ds, tag.StudyInstanceUID)
	m.SeriesInstanceUID = elementString(ds, tag.SeriesInstanceUID)
	m.SOPClassUID = elementString(ds, tag.SOPClassUID)
	m.SOPInstanceUID = elementString(ds, tag.SOPInstanceUID)
	m.Modality = elementString(ds, tag.Modality)
	m.BodyPartExamined = elementString(ds, tag.BodyPartExamined)

	m.imageOrientation = elementFloats(ds, tag.ImageOrientationPatient)
	if v, ok := elementFloat(ds, tag.RescaleSlope); ok {
		m.rescaleSlope = &v
	}
	if v, ok := elementFloat(ds, tag.RescaleIntercept); ok {
		m.rescaleIntercept = &v
	}
	if v, ok := elementInt(ds, tag.PixelPaddingValue); ok {
		m.pixelPadding = &v
	}

	if el, err := ds.FindElementByTag(tag.PixelData); err == nil {
		info := dicom.MustGetPixelDataInfo(el.Value)
		m.FrameCount = len(info.Frames)
		m.HasPixelData = m.FrameCount > 0
	}

	return m
}

func elementString(ds dicom.Dataset, t tag.Tag) string {
	el, err := ds.FindElementByTag(t)
	if err != nil {
		return ""
	}
	vals := dicom.MustGetStrings(el.Value)
	if len(vals) == 0 {
		return ""
	}
	return strings.TrimSpace(vals[0])
}

// elementFloat reads a single decimal-string attribute.
func elementFloat(ds dicom.Dataset, t tag.Tag) (float64, bool) {
	el, err := ds.FindElementByTag(t)
	if err != nil {
		return 0, false
	}
	vals := dicom.MustGetStrings(el.Value)
	if len(vals) == 0 {
		return 0, false
	}
	f, err := strconv.ParseFloat(strings.TrimSpace(vals[0]), 64)
	if err != nil {
		return 0, false
	}
	return f, true
}

func elementFloats(ds dicom.Dataset, t tag.Tag) []float64 {
	el, err := ds.FindElementByTag(t)
	if err != nil {
		return nil
	}
	vals := dicom.MustGetStrings(el.Value)
	out := make([]float64, 0, len(vals))
	for _, v := range vals {
		f, err := strconv.ParseFloat(strings.TrimSpace(v), 64)
		if err != nil {
			return nil
		}
		out = append(out, f)
	}
	return out
}

func elementInt(ds dicom.Dataset, t tag.Tag) (int, bool) {
	el, err := ds.FindElementByTag(t)
	if err != nil {
		return 0, false
	}
	vals := dicom.MustGetInts(el.Value)
	if len(vals) == 0 {
		return 0, false
	}
	return vals[0], true
}
