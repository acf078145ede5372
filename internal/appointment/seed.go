package appointment

import (
	"context"
	"fmt"
	"log"
	"time"

	"github.com/brianvoe/gofakeit/v6"
	"github.com/shopspring/decimal"
)

var insurers = []string{
	"Unimed",
	"Bradesco Saude",
	"SulAmerica",
	"Amil",
	"Porto Seguro",
}

var sessionStarts = []string{"08:00", "09:00", "10:00", "11:00", "14:00", "15:00", "16:00", "17:00"}

// Seed fills repo with psychologists and a spread of appointments over the
// last 30 days of now. Most appointments are completed so they can be paid.
func Seed(ctx context.Context, repo Repository, faker *gofakeit.Faker, psychologists, appointmentsEach int, now time.Time) error {
	log.Printf("seeding %d psychologists with %d appointments each", psychologists, appointmentsEach)

	for i := 0; i < psychologists; i++ {
		p, err := repo.CreatePsychologist(ctx, Psychologist{
			Name:                 faker.Name(),
			CommissionPercentage: decimal.NewFromInt(int64(faker.Number(40, 70))),
		})
		if err != nil {
			return fmt.Errorf("create psychologist: %w", err)
		}

		for j := 0; j < appointmentsEach; j++ {
			start := sessionStarts[faker.Number(0, len(sessionStarts)-1)]
			startAt, _ := time.Parse("15:04", start)

			a := Appointment{
				PsychologistID:   p.ID,
				PsychologistName: p.Name,
				PatientName:      faker.Name(),
				Date:             now.AddDate(0, 0, -faker.Number(0, 30)).Format(DateLayout),
				StartTime:        start,
				EndTime:          startAt.Add(50 * time.Minute).Format("15:04"),
				Value:            decimal.NewFromInt(int64(faker.Number(12, 40) * 10)),
				Status:           seedStatus(faker),
				PaymentMethod:    PaymentPrivate,
			}
			if faker.Bool() {
				insurer := insurers[faker.Number(0, len(insurers)-1)]
				token := faker.DigitN(12)
				a.PaymentMethod = PaymentInsurance
				a.InsuranceType = &insurer
				a.InsuranceToken = &token
			}

			if _, err := repo.CreateAppointment(ctx, a); err != nil {
				return fmt.Errorf("create appointment: %w", err)
			}
		}
	}

	log.Println("seed complete")
	return nil
}

func seedStatus(faker *gofakeit.Faker) AppointmentStatus {
	switch n := faker.Number(1, 10); {
	case n <= 7:
		return StatusCompleted
	case n == 8:
		return StatusConfirmed
	case n == 9:
		return StatusPending
	default:
		return StatusCancelled
	}
}
