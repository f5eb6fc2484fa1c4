package models

type Identifier interface {
	GetId() int
}

func (o Organization) GetId() int { return o.ID }

func (u User) GetId() int { return u.ID }

func (v Vehicle) GetId() int { return v.ID }

func (p Part) GetId() int { return p.ID }

func (i InventoryItem) GetId() int { return i.ID }

func (t InventoryTransaction) GetId() int { return t.ID }

func (c VehicleComponent) GetId() int { return c.ID }

func (c VehicleCost) GetId() int { return c.ID }
