package memory

import (
	"context"
	"slices"
	"sort"
	"time"

	"github.com/frontandrew/parking/internal/domain"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// ---------------------------------------------------------------------------
// sections
// ---------------------------------------------------------------------------

type sectionRepository struct{ db *db }

func (r *sectionRepository) Create(_ context.Context, section *domain.Section) error {
	r.db.lock.Lock()
	defer r.db.lock.Unlock()
	t := r.db.tables()

	for _, s := range t.sections {
		if s.Name == section.Name {
			return domain.ErrSectionAlreadyExists
		}
	}

	t.sectionSeq++
	section.ID = t.sectionSeq
	t.sections[section.ID] = *section
	return nil
}

func (r *sectionRepository) GetByID(_ context.Context, id int64) (*domain.Section, error) {
	r.db.lock.Lock()
	defer r.db.lock.Unlock()

	s, ok := r.db.tables().sections[id]
	if !ok {
		return nil, domain.ErrSectionNotFound
	}
	return &s, nil
}

// GetByIDForUpdate - транзакции в памяти и так сериализованы
func (r *sectionRepository) GetByIDForUpdate(ctx context.Context, id int64) (*domain.Section, error) {
	return r.GetByID(ctx, id)
}

func (r *sectionRepository) Update(_ context.Context, section *domain.Section) error {
	r.db.lock.Lock()
	defer r.db.lock.Unlock()
	t := r.db.tables()

	if _, ok := t.sections[section.ID]; !ok {
		return domain.ErrSectionNotFound
	}
	for _, s := range t.sections {
		if s.ID != section.ID && s.Name == section.Name {
			return domain.ErrSectionAlreadyExists
		}
	}

	t.sections[section.ID] = *section
	return nil
}

func (r *sectionRepository) List(_ context.Context) ([]*domain.Section, error) {
	r.db.lock.Lock()
	defer r.db.lock.Unlock()

	return r.filter(func(domain.Section) bool { return true }), nil
}

func (r *sectionRepository) ListByIDs(_ context.Context, ids []int64) ([]*domain.Section, error) {
	r.db.lock.Lock()
	defer r.db.lock.Unlock()

	return r.filter(func(s domain.Section) bool { return slices.Contains(ids, s.ID) }), nil
}

func (r *sectionRepository) filter(keep func(domain.Section) bool) []*domain.Section {
	sections := []*domain.Section{}
	for _, s := range r.db.tables().sections {
		if keep(s) {
			s := s
			sections = append(sections, &s)
		}
	}
	sort.Slice(sections, func(i, j int) bool { return sections[i].ID < sections[j].ID })
	return sections
}

// ---------------------------------------------------------------------------
// vehicles
// ---------------------------------------------------------------------------

type vehicleRepository struct{ db *db }

func (r *vehicleRepository) CreateIfNotExists(_ context.Context, vehicle *domain.Vehicle) (bool, error) {
	r.db.lock.Lock()
	defer r.db.lock.Unlock()
	t := r.db.tables()

	vehicle.LicensePlate = domain.NormalizeLicensePlate(vehicle.LicensePlate)
	if _, ok := t.plates[vehicle.LicensePlate]; ok {
		return false, nil
	}

	t.vehicleSeq++
	vehicle.ID = t.vehicleSeq
	vehicle.CreatedAt = time.Now()
	t.vehicles[vehicle.ID] = *vehicle
	t.plates[vehicle.LicensePlate] = vehicle.ID
	return true, nil
}

func (r *vehicleRepository) GetByID(_ context.Context, id int64) (*domain.Vehicle, error) {
	r.db.lock.Lock()
	defer r.db.lock.Unlock()

	v, ok := r.db.tables().vehicles[id]
	if !ok {
		return nil, domain.ErrVehicleNotFound
	}
	return &v, nil
}

func (r *vehicleRepository) GetByLicensePlate(_ context.Context, licensePlate string) (*domain.Vehicle, error) {
	r.db.lock.Lock()
	defer r.db.lock.Unlock()
	t := r.db.tables()

	id, ok := t.plates[domain.NormalizeLicensePlate(licensePlate)]
	if !ok {
		return nil, domain.ErrVehicleNotFound
	}
	v := t.vehicles[id]
	return &v, nil
}

// ---------------------------------------------------------------------------
// tickets
// ---------------------------------------------------------------------------

type ticketRepository struct{ db *db }

func (r *ticketRepository) Create(_ context.Context, ticket *domain.Ticket) error {
	r.db.lock.Lock()
	defer r.db.lock.Unlock()
	t := r.db.tables()

	if ticket.Status == "" {
		ticket.Status = domain.TicketStatusAvailable
	}
	t.ticketSeq++
	ticket.ID = t.ticketSeq
	t.tickets[ticket.ID] = domain.Ticket{ID: ticket.ID, Type: ticket.Type, Status: ticket.Status}
	return nil
}

func (r *ticketRepository) GetByID(_ context.Context, id int64) (*domain.Ticket, error) {
	r.db.lock.Lock()
	defer r.db.lock.Unlock()

	ticket, ok := r.db.tables().tickets[id]
	if !ok {
		return nil, domain.ErrTicketNotFound
	}
	return &ticket, nil
}

func (r *ticketRepository) GetByIDForUpdate(ctx context.Context, id int64) (*domain.Ticket, error) {
	return r.GetByID(ctx, id)
}

func (r *ticketRepository) UpdateStatus(_ context.Context, id int64, status domain.TicketStatus) error {
	r.db.lock.Lock()
	defer r.db.lock.Unlock()
	t := r.db.tables()

	ticket, ok := t.tickets[id]
	if !ok {
		return domain.ErrTicketNotFound
	}
	ticket.Status = status
	t.tickets[id] = ticket
	return nil
}

// ---------------------------------------------------------------------------
// user tickets
// ---------------------------------------------------------------------------

type userTicketRepository struct{ db *db }

func (r *userTicketRepository) Create(_ context.Context, userTicket *domain.UserTicket) error {
	r.db.lock.Lock()
	defer r.db.lock.Unlock()
	t := r.db.tables()

	if _, ok := t.userTickets[userTicket.TicketID]; ok {
		return domain.ErrConflict
	}
	t.userTickets[userTicket.TicketID] = *userTicket
	return nil
}

func (r *userTicketRepository) GetByTicketID(_ context.Context, ticketID int64) (*domain.UserTicket, error) {
	r.db.lock.Lock()
	defer r.db.lock.Unlock()

	ut, ok := r.db.tables().userTickets[ticketID]
	if !ok {
		return nil, domain.ErrUserTicketNotFound
	}
	return &ut, nil
}

// ---------------------------------------------------------------------------
// reservations
// ---------------------------------------------------------------------------

type reservationRepository struct{ db *db }

func (r *reservationRepository) Create(_ context.Context, reservation *domain.Reservation) error {
	r.db.lock.Lock()
	defer r.db.lock.Unlock()
	t := r.db.tables()

	for _, res := range t.reservations {
		if res.SectionID == reservation.SectionID && res.Slot == reservation.Slot {
			return domain.ErrSlotAlreadyReserved
		}
	}
	if _, ok := t.reservations[reservation.TicketID]; ok {
		return domain.ErrAlreadyReserved
	}

	t.reservations[reservation.TicketID] = *reservation
	return nil
}

func (r *reservationRepository) GetByTicketID(_ context.Context, ticketID int64) (*domain.Reservation, error) {
	r.db.lock.Lock()
	defer r.db.lock.Unlock()

	res, ok := r.db.tables().reservations[ticketID]
	if !ok {
		return nil, domain.ErrReservationNotFound
	}
	return &res, nil
}

func (r *reservationRepository) DeleteByTicketID(_ context.Context, ticketID int64) error {
	r.db.lock.Lock()
	defer r.db.lock.Unlock()

	delete(r.db.tables().reservations, ticketID)
	return nil
}

func (r *reservationRepository) ListBySection(_ context.Context, sectionID int64) ([]*domain.Reservation, error) {
	r.db.lock.Lock()
	defer r.db.lock.Unlock()

	reservations := []*domain.Reservation{}
	for _, res := range r.db.tables().reservations {
		if res.SectionID == sectionID {
			res := res
			reservations = append(reservations, &res)
		}
	}
	sort.Slice(reservations, func(i, j int) bool { return reservations[i].Slot < reservations[j].Slot })
	return reservations, nil
}

func (r *reservationRepository) CountActive(_ context.Context, sectionID int64, now time.Time) (int, error) {
	r.db.lock.Lock()
	defer r.db.lock.Unlock()
	t := r.db.tables()

	count := 0
	for _, res := range t.reservations {
		if res.SectionID != sectionID {
			continue
		}
		ut, ok := t.userTickets[res.TicketID]
		if !ok || !ut.ValidTo.After(now) {
			continue
		}
		if hasOpenSession(t, res.TicketID) {
			continue
		}
		count++
	}
	return count, nil
}

func (r *reservationRepository) MaxSlot(_ context.Context, sectionID int64) (int, error) {
	r.db.lock.Lock()
	defer r.db.lock.Unlock()

	maxSlot := 0
	for _, res := range r.db.tables().reservations {
		if res.SectionID == sectionID && res.Slot > maxSlot {
			maxSlot = res.Slot
		}
	}
	return maxSlot, nil
}

func (r *reservationRepository) ListExpiryCandidates(_ context.Context, now time.Time) ([]domain.ExpiryCandidate, error) {
	r.db.lock.Lock()
	defer r.db.lock.Unlock()
	t := r.db.tables()

	candidates := []domain.ExpiryCandidate{}
	for _, res := range t.reservations {
		ut, ok := t.userTickets[res.TicketID]
		if !ok || !ut.ValidTo.Before(now) {
			continue
		}
		candidates = append(candidates, domain.ExpiryCandidate{
			Reservation:    res,
			ValidTo:        ut.ValidTo,
			HasOpenSession: hasOpenSession(t, res.TicketID),
		})
	}
	sort.Slice(candidates, func(i, j int) bool { return candidates[i].ValidTo.Before(candidates[j].ValidTo) })
	return candidates, nil
}

func (r *reservationRepository) DeleteExpired(_ context.Context, ticketID int64, now time.Time) (bool, error) {
	r.db.lock.Lock()
	defer r.db.lock.Unlock()
	t := r.db.tables()

	res, ok := t.reservations[ticketID]
	if !ok {
		return false, nil
	}
	ut, ok := t.userTickets[res.TicketID]
	if !ok || !ut.ValidTo.Before(now) || hasOpenSession(t, ticketID) {
		return false, nil
	}

	delete(t.reservations, ticketID)
	return true, nil
}

func hasOpenSession(t *tables, ticketID int64) bool {
	for _, s := range t.sessions {
		if s.TicketID == ticketID && s.IsOpen() {
			return true
		}
	}
	return false
}

// ---------------------------------------------------------------------------
// sessions
// ---------------------------------------------------------------------------

type sessionRepository struct{ db *db }

func (r *sessionRepository) Create(_ context.Context, session *domain.Session) error {
	r.db.lock.Lock()
	defer r.db.lock.Unlock()
	t := r.db.tables()

	if hasOpenSession(t, session.TicketID) {
		return domain.ErrConflict
	}
	if session.ID == uuid.Nil {
		session.ID = uuid.New()
	}
	t.sessions[session.ID] = *session
	return nil
}

func (r *sessionRepository) GetOpenByTicketID(_ context.Context, ticketID int64) (*domain.Session, error) {
	r.db.lock.Lock()
	defer r.db.lock.Unlock()
	t := r.db.tables()

	for _, s := range t.sessions {
		if s.TicketID == ticketID && s.IsOpen() {
			s.LicensePlate = t.vehicles[s.VehicleID].LicensePlate
			return &s, nil
		}
	}
	return nil, domain.ErrSessionNotFound
}

func (r *sessionRepository) Close(_ context.Context, session *domain.Session) error {
	r.db.lock.Lock()
	defer r.db.lock.Unlock()
	t := r.db.tables()

	stored, ok := t.sessions[session.ID]
	if !ok || !stored.IsOpen() {
		return domain.ErrSessionNotFound
	}
	stored.CheckedOutAt = session.CheckedOutAt
	stored.Fee = session.Fee
	t.sessions[session.ID] = stored
	return nil
}

func (r *sessionRepository) CountOpen(_ context.Context, sectionID int64) (int, error) {
	r.db.lock.Lock()
	defer r.db.lock.Unlock()

	count := 0
	for _, s := range r.db.tables().sessions {
		if s.SectionID == sectionID && s.IsOpen() {
			count++
		}
	}
	return count, nil
}

func (r *sessionRepository) ListBySection(_ context.Context, sectionID int64, from, to time.Time) ([]*domain.Session, error) {
	r.db.lock.Lock()
	defer r.db.lock.Unlock()
	t := r.db.tables()

	sessions := []*domain.Session{}
	for _, s := range t.sessions {
		if s.SectionID != sectionID || s.CheckedInAt.Before(from) || s.CheckedInAt.After(to) {
			continue
		}
		s := s
		s.LicensePlate = t.vehicles[s.VehicleID].LicensePlate
		sessions = append(sessions, &s)
	}
	sort.Slice(sessions, func(i, j int) bool { return sessions[i].CheckedInAt.Before(sessions[j].CheckedInAt) })
	return sessions, nil
}

func (r *sessionRepository) Revenue(ctx context.Context, sectionID int64, from, to time.Time) (decimal.Decimal, int, error) {
	sessions, err := r.ListBySection(ctx, sectionID, from, to)
	if err != nil {
		return decimal.Zero, 0, err
	}

	revenue := decimal.Zero
	for _, s := range sessions {
		if s.Fee.Valid {
			revenue = revenue.Add(s.Fee.Decimal)
		}
	}
	return revenue, len(sessions), nil
}

// ---------------------------------------------------------------------------
// prices
// ---------------------------------------------------------------------------

// priceRepository не участвует в транзакциях: тарифы меняются отдельной
// административной операцией и читаются при выезде вне блокировки хранилища.
type priceRepository struct{ table *priceTable }

func (r *priceRepository) Get(_ context.Context, ticketType domain.TicketType, vehicleType domain.VehicleType) (*domain.TicketPrice, error) {
	r.table.mu.RLock()
	defer r.table.mu.RUnlock()

	price, ok := r.table.rows[priceKey{ticketType, vehicleType}]
	if !ok {
		return nil, domain.ErrPriceNotConfigured
	}
	return &price, nil
}

func (r *priceRepository) List(_ context.Context) ([]*domain.TicketPrice, error) {
	r.table.mu.RLock()
	defer r.table.mu.RUnlock()

	prices := []*domain.TicketPrice{}
	for _, p := range r.table.rows {
		p := p
		prices = append(prices, &p)
	}
	sort.Slice(prices, func(i, j int) bool {
		if prices[i].TicketType != prices[j].TicketType {
			return prices[i].TicketType < prices[j].TicketType
		}
		return prices[i].VehicleType < prices[j].VehicleType
	})
	return prices, nil
}

func (r *priceRepository) Upsert(_ context.Context, price *domain.TicketPrice) error {
	r.table.mu.Lock()
	defer r.table.mu.Unlock()

	r.table.rows[priceKey{price.TicketType, price.VehicleType}] = *price
	return nil
}
