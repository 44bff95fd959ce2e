// Package dicomtest writes small synthetic DICOM files for tests.
package dicomtest

import (
	"fmt"
	"os"
	"testing"

	"github.com/google/uuid"
	"github.com/suyashkumar/dicom"
	"github.com/suyashkumar/dicom/pkg/frame"
	"github.com/suyashkumar/dicom/pkg/tag"
)

const (
	transferSyntaxLittleEndian = "1.2.840.10008.1.2.1"
	sopClassCTImageStorage     = "1.2.840.10008.5.1.4.1.1.2"
)

type Options struct {
	StudyUID  string
	SeriesUID string
	SOPUID    string

	Modality string // defaults to CT
	BodyPart string // written only when set

	Rows   int // defaults to 4
	Cols   int // defaults to 4
	Frames int // defaults to 1

	PixelValue uint16

	Slope       string // decimal string, written only when set
	Intercept   string
	Padding     *int
	Orientation []string

	OmitPixelData bool
}

func (o *Options) fill() {
	if o.StudyUID == "" {
		o.StudyUID = "1.2.826.0.1.3680043.2.1125." + uuid.New().String()[:8]
	}
	if o.SeriesUID == "" {
		o.SeriesUID = o.StudyUID + ".1"
	}
	if o.SOPUID == "" {
		o.SOPUID = o.SeriesUID + "." + uuid.New().String()[:8]
	}
	if o.Modality == "" {
		o.Modality = "CT"
	}
	if o.Rows == 0 {
		o.Rows = 4
	}
	if o.Cols == 0 {
		o.Cols = 4
	}
	if o.Frames == 0 {
		o.Frames = 1
	}
}

// WriteFile writes one synthetic CT file to path.
func WriteFile(tb testing.TB, path string, opt Options) {
	tb.Helper()
	opt.fill()

	elements := []*dicom.Element{
		mustNewElement(tb, tag.TransferSyntaxUID, []string{transferSyntaxLittleEndian}),
		mustNewElement(tb, tag.StudyInstanceUID, []string{opt.StudyUID}),
		mustNewElement(tb, tag.SeriesInstanceUID, []string{opt.SeriesUID}),
		mustNewElement(tb, tag.SOPInstanceUID, []string{opt.SOPUID}),
		mustNewElement(tb, tag.SOPClassUID, []string{sopClassCTImageStorage}),
		mustNewElement(tb, tag.Modality, []string{opt.Modality}),
	}
	if opt.BodyPart != "" {
		elements = append(elements, mustNewElement(tb, tag.BodyPartExamined, []string{opt.BodyPart}))
	}
	if opt.Slope != "" {
		elements = append(elements, mustNewElement(tb, tag.RescaleSlope, []string{opt.Slope}))
	}
	if opt.Intercept != "" {
		elements = append(elements, mustNewElement(tb, tag.RescaleIntercept, []string{opt.Intercept}))
	}
	if opt.Padding != nil {
		elements = append(elements, mustNewElement(tb, tag.PixelPaddingValue, []int{*opt.Padding}))
	}
	if len(opt.Orientation) > 0 {
		elements = append(elements, mustNewElement(tb, tag.ImageOrientationPatient, opt.Orientation))
	}

	if !opt.OmitPixelData {
		elements = append(elements,
			mustNewElement(tb, tag.Rows, []int{opt.Rows}),
			mustNewElement(tb, tag.Columns, []int{opt.Cols}),
			mustNewElement(tb, tag.BitsAllocated, []int{16}),
			mustNewElement(tb, tag.BitsStored, []int{16}),
			mustNewElement(tb, tag.HighBit, []int{15}),
			mustNewElement(tb, tag.PixelRepresentation, []int{0}),
			mustNewElement(tb, tag.SamplesPerPixel, []int{1}),
			mustNewElement(tb, tag.PhotometricInterpretation, []string{"MONOCHROME2"}),
		)
		if opt.Frames > 1 {
			elements = append(elements, mustNewElement(tb, tag.NumberOfFrames, []string{fmt.Sprintf("%d", opt.Frames)}))
		}
		elements = append(elements, mustNewElement(tb, tag.PixelData, pixelData(opt)))
	}

	f, err := os.Create(path)
	if err != nil {
		tb.Fatalf("create %s: %v", path, err)
	}
	defer f.Close()

	if err := dicom.Write(f, dicom.Dataset{Elements: elements}); err != nil {
		tb.Fatalf("write dicom %s: %v", path, err)
	}
}

func pixelData(opt Options) dicom.PixelDataInfo {
	pixelsPerFrame := opt.Rows * opt.Cols
	frames := make([]*frame.Frame, 0, opt.Frames)
	for i := 0; i < opt.Frames; i++ {
		nf := frame.NewNativeFrame[uint16](16, opt.Rows, opt.Cols, pixelsPerFrame, 1)
		for p := 0; p < pixelsPerFrame; p++ {
			nf.RawData[p] = opt.PixelValue
		}
		frames = append(frames, &frame.Frame{Encapsulated: false, NativeData: nf})
	}
	return dicom.PixelDataInfo{Frames: frames}
}

func mustNewElement(tb testing.TB, t tag.Tag, value interface{}) *dicom.Element {
	tb.Helper()
	el, err := dicom.NewElement(t, value)
	if err != nil {
		tb.Fatalf("new element %v: %v", t, err)
	}
	return el
}
