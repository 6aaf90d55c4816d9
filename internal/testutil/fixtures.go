package testutil

import "github.com/Veraticus/certcheck/internal/model"

// Seat numbers of the records returned by SampleCertificates.
const (
	SeatAniket = "S1900508770"
	SeatPriya  = "S190020045"
	SeatRahul  = "T2023001"
)

// SampleText is a single-line OCR transcript of the certificate for SeatAniket.
const SampleText = "Seat No: S1900508770 Student Name: ANIKET TODKAR Mother Name: PRAMODAPPA TODKAR " +
	"Third Semester SGPA: 9.59 RESULT DATE: 31 January 2025 SUB:(Information Technology)"

// SampleCertificates returns a fresh copy of the standard reference records.
func SampleCertificates() []model.Certificate {
	return []model.Certificate{
		{
			SeatNo:      SeatAniket,
			StudentName: "Aniket Todkar",
			MotherName:  "Pramodappa Todkar",
			SGPA:        9.59,
			ResultDate:  "31 January 2025",
			Subject:     "Information Technology",
		},
		{
			SeatNo:      SeatPriya,
			StudentName: "Priya Sunil Patil",
			MotherName:  "Sunita",
			SGPA:        9.1,
			ResultDate:  "20/12/2022",
			Subject:     "Information Technology",
		},
		{
			SeatNo:      SeatRahul,
			StudentName: "Rahul Sharma",
			MotherName:  "Meena",
			SGPA:        6.4,
			ResultDate:  "01/07/2023",
			Subject:     "Mechanical Engineering",
		},
	}
}
