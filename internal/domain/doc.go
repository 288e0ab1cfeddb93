// Package domain models the inputs and outputs of tornado windspeed inference.
//
// # Features
//
// A reading carries twelve atmospheric observations. After mapping, every
// vector has exactly twelve values in this order:
//
//	0  CAPE             convective available potential energy (J/kg)
//	1  SRH              storm-relative helicity (m²/s²)
//	2  Lapse_0_3km      low-level lapse rate (°C/km)
//	3  PWAT             precipitable water (in)
//	4  Temperature      surface temperature (°F)
//	5  Dewpoint         surface dewpoint (°F)
//	6  CAPE_3km         0-3 km CAPE (J/kg)
//	7  Lapse_3_6km      mid-level lapse rate (°C/km)
//	8  Surface_RH       surface relative humidity (%)
//	9  RH_700_500       700-500 mb relative humidity (%)
//	10 Storm_Motion     storm motion (kt)
//	11 Total_TVS_Peaks  tornado vortex signature peaks (count)
//
// Missing keys are filled with 0, never rejected. Unknown keys are ignored.
//
// # Post-processing
//
// Raw model output is clamped to [50, 400] mph, the range of observed
// tornadic windspeeds, then rounded to one decimal place. Clamping is not an
// error; [PredictionResult.Clamped] records that it happened.
//
// Confidence is EXCELLENT when the model's reported test R² is strictly above
// 0.95 and GOOD otherwise. There is no lower tier.
//
// # Errors
//
// [ErrLoad], [ErrCorruptArtifact], and [ErrShapeMismatch] classify failures.
// Wrapped errors are matched with errors.Is.
package domain
