package fakeapi

import "fmt"

// SeedTravel loads a small demo data set: cities, airports in those cities,
// aircraft based at the airports and passengers on the aircraft.
func SeedTravel(s *Server) error {
	cities := []map[string]any{
		{"name": "St. John's", "state": "NL", "population": 110525},
		{"name": "Gander", "state": "NL", "population": 11880},
		{"name": "Halifax", "state": "NS", "population": 439819},
	}
	cityIDs := make([]int64, 0, len(cities))
	for _, city := range cities {
		id, err := s.Insert("cities", city)
		if err != nil {
			return fmt.Errorf("fakeapi: seed city: %w", err)
		}
		cityIDs = append(cityIDs, id)
	}

	airports := []map[string]any{
		{"name": "St. John's International", "code": "YYT", "city": cityIDs[0]},
		{"name": "Gander International", "code": "YQX", "city": cityIDs[1]},
		{"name": "Halifax Stanfield", "code": "YHZ", "city": cityIDs[2]},
	}
	airportIDs := make([]int64, 0, len(airports))
	for _, airport := range airports {
		id, err := s.Insert("airports", airport)
		if err != nil {
			return fmt.Errorf("fakeapi: seed airport: %w", err)
		}
		airportIDs = append(airportIDs, id)
	}

	aircraft := []map[string]any{
		{"type": "Boeing 737", "airlineName": "WestJet", "numberOfPassengers": 174},
		{"type": "Airbus A320", "airlineName": "Air Canada", "numberOfPassengers": 146},
	}
	aircraftIDs := make([]int64, 0, len(aircraft))
	for _, plane := range aircraft {
		id, err := s.Insert("aircraft", plane)
		if err != nil {
			return fmt.Errorf("fakeapi: seed aircraft: %w", err)
		}
		aircraftIDs = append(aircraftIDs, id)
	}

	passengers := []map[string]any{
		{"firstName": "Jane", "lastName": "Doe", "phoneNumber": "709-555-0101", "cityId": cityIDs[0]},
		{"firstName": "Sam", "lastName": "Hill", "phoneNumber": "709-555-0199", "cityId": cityIDs[1]},
	}
	passengerIDs := make([]int64, 0, len(passengers))
	for _, passenger := range passengers {
		id, err := s.Insert("passengers", passenger)
		if err != nil {
			return fmt.Errorf("fakeapi: seed passenger: %w", err)
		}
		passengerIDs = append(passengerIDs, id)
	}

	links := []struct {
		entity   string
		parent   int64
		relation string
		child    int64
	}{
		{"airports", airportIDs[0], "aircraft", aircraftIDs[0]},
		{"airports", airportIDs[2], "aircraft", aircraftIDs[1]},
		{"aircraft", aircraftIDs[0], "passengers", passengerIDs[0]},
		{"aircraft", aircraftIDs[0], "passengers", passengerIDs[1]},
	}
	for _, link := range links {
		if err := s.Link(link.entity, link.parent, link.relation, link.child); err != nil {
			return err
		}
	}
	return nil
}
