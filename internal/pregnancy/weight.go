package pregnancy

import (
	"math"
	"strconv"
)

const (
	MessageWeightStable   = "안정적인 범위예요."
	MessageWeightLow      = "조금 더 에너지를 보충해도 괜찮아요."
	MessageWeightFast     = "증가 폭이 빠릅니다. 담당의와 상의하세요."
	BMICategoryUnder      = "underweight"
	BMICategoryNormal     = "normal"
	BMICategoryOverweight = "overweight"
	BMICategoryObese      = "obese"
)

type GainRange [2]float64

func (r GainRange) Low() float64  { return r[0] }
func (r GainRange) High() float64 { return r[1] }

func (r GainRange) String() string {
	return formatKg(r[0]) + "kg ~ " + formatKg(r[1]) + "kg"
}

type WeightStatus struct {
	BMI                    float64   `json:"bmi"`
	BMICategory            string    `json:"bmiCategory"`
	WeightGainedKg         float64   `json:"gained"`
	RecommendedGainRangeKg GainRange `json:"recommendedGainRangeKg"`
	Target                 string    `json:"target"`
	Message                string    `json:"message"`
}

type gainBand struct {
	upperBMI float64
	category string
	gain     GainRange
}

// IOM 2009 total gestational gain by pre-pregnancy BMI. A BMI equal to an upper bound
// belongs to the next band.
var gainBands = []gainBand{
	{upperBMI: 18.5, category: BMICategoryUnder, gain: GainRange{12.5, 18}},
	{upperBMI: 25, category: BMICategoryNormal, gain: GainRange{11.5, 16}},
	{upperBMI: 30, category: BMICategoryOverweight, gain: GainRange{7, 11.5}},
	{upperBMI: math.Inf(1), category: BMICategoryObese, gain: GainRange{5, 9}},
}

// EvaluateWeight reports BMI and gestational weight gain against the recommended band.
// ok is false when any input is missing or non-positive.
func EvaluateWeight(heightCm, prePregnancyWeightKg, currentWeightKg float64) (WeightStatus, bool) {
	if !positive(heightCm) || !positive(prePregnancyWeightKg) || !positive(currentWeightKg) {
		return WeightStatus{}, false
	}

	heightM := heightCm / 100
	bmi := prePregnancyWeightKg / (heightM * heightM)
	band := gainBandForBMI(bmi)

	gained := currentWeightKg - prePregnancyWeightKg
	message := MessageWeightStable
	if gained < band.gain.Low() {
		message = MessageWeightLow
	} else if gained > band.gain.High() {
		message = MessageWeightFast
	}

	return WeightStatus{
		BMI:                    RoundToOneDecimal(bmi),
		BMICategory:            band.category,
		WeightGainedKg:         RoundToOneDecimal(gained),
		RecommendedGainRangeKg: band.gain,
		Target:                 band.gain.String(),
		Message:                message,
	}, true
}

// EvaluateWeightPtr adapts nullable stored values to EvaluateWeight.
func EvaluateWeightPtr(heightCm, prePregnancyWeightKg, currentWeightKg *float64) *WeightStatus {
	if heightCm == nil || prePregnancyWeightKg == nil || currentWeightKg == nil {
		return nil
	}
	status, ok := EvaluateWeight(*heightCm, *prePregnancyWeightKg, *currentWeightKg)
	if !ok {
		return nil
	}
	return &status
}

func RecommendedGainForBMI(bmi float64) GainRange {
	return gainBandForBMI(bmi).gain
}

func gainBandForBMI(bmi float64) gainBand {
	for _, band := range gainBands {
		if bmi < band.upperBMI {
			return band
		}
	}
	return gainBands[len(gainBands)-1]
}

func RoundToOneDecimal(value float64) float64 {
	return math.Round(value*10) / 10
}

func positive(value float64) bool {
	return !math.IsNaN(value) && value > 0
}

func formatKg(value float64) string {
	return strconv.FormatFloat(value, 'f', -1, 64)
}
